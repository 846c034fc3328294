package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/tansive/problemadvice/internal/common/apperrors"
	"github.com/tansive/problemadvice/pkg/advice"
	"github.com/tansive/problemadvice/pkg/problem"
)

type renderOptions struct {
	status       int
	detail       string
	causes       []string
	causalChains bool
	stackTraces  bool
	output       string
}

func newRenderCmd() *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the problem document built for a synthetic error chain",
		Long: `Print the problem document built for an error declaring --status whose
causes are the --cause messages, outermost first. Causes declare no status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, status, err := renderProblem(opts)
			if err != nil {
				return err
			}
			statusLabel(status).Fprintf(os.Stderr, "%s\n", status)
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().IntVar(&opts.status, "status", http.StatusInternalServerError, "HTTP status declared by the error")
	cmd.Flags().StringVar(&opts.detail, "detail", "", "Message of the error")
	cmd.Flags().StringArrayVar(&opts.causes, "cause", nil, "Message of a cause; repeat for deeper causes")
	cmd.Flags().BoolVar(&opts.causalChains, "causal-chains", false, "Nest causes into the problem")
	cmd.Flags().BoolVar(&opts.stackTraces, "stack-traces", false, "Include stack traces")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")
	return cmd
}

func renderProblem(opts renderOptions) ([]byte, problem.Status, error) {
	if opts.status < 100 || opts.status > 599 {
		return nil, problem.Status{}, fmt.Errorf("invalid status %d", opts.status)
	}
	if opts.output != "json" && opts.output != "yaml" {
		return nil, problem.Status{}, fmt.Errorf("unsupported output format %q", opts.output)
	}

	var cause error
	for i := len(opts.causes) - 1; i >= 0; i-- {
		next := apperrors.New(opts.causes[i])
		if cause != nil {
			next = next.Wrap(cause)
		}
		cause = next
	}
	err := apperrors.New(opts.detail).SetStatusCode(opts.status)
	if cause != nil {
		err = err.Wrap(cause)
	}

	a := advice.New(advice.WithCausalChains(opts.causalChains))
	p := a.ToProblem(err)
	out, merr := problem.Encoder{StackTraces: opts.stackTraces}.Marshal(p)
	if merr != nil {
		return nil, problem.Status{}, merr
	}
	if opts.output == "yaml" {
		if out, merr = yaml.JSONToYAML(out); merr != nil {
			return nil, problem.Status{}, merr
		}
	} else {
		out = append(out, '\n')
	}
	return out, *p.Status(), nil
}

func statusLabel(s problem.Status) *color.Color {
	switch {
	case s.Is5xxServerError():
		return errorLabel
	case s.Is4xxClientError():
		return warnLabel
	}
	return okLabel
}
