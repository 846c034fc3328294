package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tansive/problemadvice/internal/common/httpclient"
	"github.com/tansive/problemadvice/pkg/problem"
)

// ErrProblemResponse is returned after a problem response has been printed.
var ErrProblemResponse = errors.New("server answered with a problem")

func newFetchCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "fetch <path>",
		Short: "GET a path from a problemd server and print the response or problem chain",
		Example: `  problemd fetch /problems/404?depth=3
  problemd fetch --server http://localhost:8678 /greetings/ada`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := httpclient.NewClient(serverURL, httpclient.ClientOptions{Timeout: 30 * time.Second})
			return fetch(cmd.Context(), client, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8678", "Base URL of the problemd server")
	return cmd
}

type resourceGetter interface {
	GetResource(ctx context.Context, resourcePath string, queryParams map[string]string) ([]byte, error)
}

func fetch(ctx context.Context, c resourceGetter, target string, w io.Writer) error {
	resourcePath, rawQuery, _ := strings.Cut(target, "?")
	query := map[string]string{}
	if rawQuery != "" {
		values, err := url.ParseQuery(rawQuery)
		if err != nil {
			return fmt.Errorf("invalid query: %w", err)
		}
		for k := range values {
			query[k] = values.Get(k)
		}
	}

	body, err := c.GetResource(ctx, resourcePath, query)
	var p *problem.Problem
	if errors.As(err, &p) {
		printProblemChain(w, p)
		return ErrProblemResponse
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", body)
	return err
}

// printProblemChain prints one line per problem, causes indented below.
func printProblemChain(w io.Writer, p *problem.Problem) {
	for depth := 0; p != nil; depth, p = depth+1, p.Cause() {
		indent := strings.Repeat("  ", depth)
		label := okLabel
		status := "-"
		if s := p.Status(); s != nil {
			label = statusLabel(*s)
			status = s.String()
		}
		fmt.Fprintf(w, "%s%s", indent, label.Sprint(status))
		if p.Detail() != "" {
			fmt.Fprintf(w, ": %s", p.Detail())
		}
		fmt.Fprintln(w)
	}
}
