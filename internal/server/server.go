// Package server provides the problemd HTTP server. It demonstrates the
// problem advice end to end: every failure, from handler errors to unknown
// routes, recovered panics and timeouts, is answered with an RFC 7807
// problem document.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/tansive/problemadvice/internal/common/httpx"
	"github.com/tansive/problemadvice/internal/common/logtrace"
	"github.com/tansive/problemadvice/internal/common/middleware"
	"github.com/tansive/problemadvice/internal/config"
	"github.com/tansive/problemadvice/pkg/advice"
	"github.com/tansive/problemadvice/pkg/problem"
)

// ProblemServer provides the main HTTP server for problemd.
type ProblemServer struct {
	Router    *chi.Mux // HTTP router for request handling
	cfg       *config.ConfigParam
	advice    *advice.Advice
	greetings *greetingStore
}

// CreateNewServer creates a new ProblemServer for cfg and installs its
// problem advice for the httpx package.
func CreateNewServer(cfg *config.ConfigParam) (*ProblemServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	s := &ProblemServer{
		Router:    chi.NewRouter(),
		cfg:       cfg,
		advice:    NewAdvice(cfg),
		greetings: newGreetingStore(maxGreetings),
	}
	httpx.SetProblemAdvice(s.advice)
	return s, nil
}

// NewAdvice creates the problem advice configured by cfg. Stack traces are
// rendered when configured or when the configured log level is trace.
func NewAdvice(cfg *config.ConfigParam) *advice.Advice {
	return advice.New(
		advice.WithLogger(log.Logger),
		advice.WithCausalChains(cfg.Problem.CausalChainsEnabled),
		advice.WithStackTraces(cfg.Problem.IncludeStackTraces || cfg.TraceEnabled()),
		advice.WithProblemTypeBase(cfg.Problem.TypeBaseURL),
		advice.WithRegistry(advice.NewRegistry(
			advice.MapError(errGreetingStoreFull, http.StatusInsufficientStorage),
		)),
		advice.WithProcessor(func(rsp *advice.Response) *advice.Response {
			rsp.Header.Set("Cache-Control", "no-store")
			return rsp
		}),
	)
}

// MountHandlers sets up all HTTP routes and middleware for the server.
func (s *ProblemServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	s.Router.Use(middleware.SetTimeout(s.cfg.GetRequestTimeout()))
	if s.cfg.HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.NotFound(httpx.NotFound)
	s.Router.MethodNotAllowed(httpx.MethodNotAllowed)
	s.mountResourceHandlers(s.Router)
	if logtrace.IsTraceEnabled() {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

// mountResourceHandlers registers all resource endpoints on the router.
func (s *ProblemServer) mountResourceHandlers(r chi.Router) {
	r.Route("/greetings", func(r chi.Router) {
		r.Post("/", httpx.WrapHttpRsp(s.createGreeting))
		r.Get("/{name}", httpx.WrapHttpRsp(s.getGreeting))
	})
	r.Get("/problems/{status}", httpx.WrapHttpRsp(s.getProblem))
	r.Get("/panic", s.getPanic)
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

// GetVersionRsp represents the response for version information.
type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	MediaType     string `json:"mediaType"`
	CausalChains  bool   `json:"causalChains"`
}

func (s *ProblemServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "problemd: " + Version,
		MediaType:     problem.MediaType,
		CausalChains:  s.advice.CausalChainsEnabled(),
	}
	httpx.SendJsonRsp(w, r, http.StatusOK, rsp)
}

func (s *ProblemServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")
	httpx.SendJsonRsp(w, r, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *ProblemServer) getPanic(w http.ResponseWriter, r *http.Request) {
	panic("panic requested by " + r.RemoteAddr)
}

// HandleCORS provides CORS middleware for cross-origin requests.
func (s *ProblemServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding"},
		ExposedHeaders:   []string{"Location", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
