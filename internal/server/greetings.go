package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/problemadvice/internal/common/apperrors"
	"github.com/tansive/problemadvice/internal/common/httpx"
)

const maxGreetings = 1000

var (
	errGreetingStoreFull = errors.New("greeting store is full")

	ErrGreetingExists   = apperrors.New("greeting already exists").SetStatusCode(http.StatusConflict)
	ErrGreetingNotFound = apperrors.New("greeting not found").SetStatusCode(http.StatusNotFound)
)

// Greeting is the body of POST /greetings.
type Greeting struct {
	Name     string `json:"name" validate:"required,max=64"`
	Language string `json:"language" validate:"omitempty,oneof=en fr de es"`
}

// GreetingRsp is the representation of a stored greeting.
type GreetingRsp struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

var salutations = map[string]string{
	"":   "Hello",
	"en": "Hello",
	"fr": "Bonjour",
	"de": "Hallo",
	"es": "Hola",
}

type greetingStore struct {
	mu        sync.RWMutex
	limit     int
	greetings map[string]Greeting
}

func newGreetingStore(limit int) *greetingStore {
	return &greetingStore{limit: limit, greetings: map[string]Greeting{}}
}

func (gs *greetingStore) add(g Greeting) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if _, ok := gs.greetings[g.Name]; ok {
		return ErrGreetingExists.Msg("greeting for " + g.Name + " already exists")
	}
	if len(gs.greetings) >= gs.limit {
		return apperrors.Wrap(errGreetingStoreFull, "unable to store greeting").Detail("limit", gs.limit)
	}
	gs.greetings[g.Name] = g
	return nil
}

func (gs *greetingStore) get(name string) (Greeting, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	g, ok := gs.greetings[name]
	if !ok {
		return Greeting{}, ErrGreetingNotFound.Msg("no greeting for " + name)
	}
	return g, nil
}

func greetingRsp(g Greeting) *GreetingRsp {
	return &GreetingRsp{Name: g.Name, Message: salutations[g.Language] + ", " + g.Name}
}

func (s *ProblemServer) createGreeting(r *http.Request) (*httpx.Response, error) {
	var g Greeting
	if err := httpx.GetRequestData(r, &g); err != nil {
		return nil, err
	}
	if err := s.greetings.add(g); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/greetings/" + g.Name,
		Response:   greetingRsp(g),
	}, nil
}

func (s *ProblemServer) getGreeting(r *http.Request) (*httpx.Response, error) {
	g, err := s.greetings.get(chi.URLParam(r, "name"))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   greetingRsp(g),
	}, nil
}
