// Package main provides the chatgpt-wd command: load a web page, rewrite
// every visible text with a chat-completion model and write the replies back
// into the page.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

// Exit codes
const (
	exitOK          = 0
	exitSetupFailed = 1
	exitTaskFailed  = 2
)

// cliOptions holds command-line flags. Only flags the user actually set
// override the configuration file.
type cliOptions struct {
	configPath   string
	systemPrompt string
	model        string
	temperature  float64
	concurrency  int
	minLength    int
	rateLimit    float64
	driver       string
	endpoint     string
	headless     bool
	strict       bool
	keepOpen     bool
	metricsFile  string
	verbosity    string
}

// exitError carries the process exit status out of RunE
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func newRootCmd(d deps) *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "chatgpt-wd [flags] <url-or-query>",
		Short: "Rewrite the text of a web page with a chat-completion model",
		Long: `chatgpt-wd opens a page in an automated browser, sends every leaf text
element to an OpenAI-compatible chat-completion endpoint and replaces the
element's text with the reply.

An argument that is not an http(s) URL is used as a search query.`,
		Example: `  chatgpt-wd https://example.com
  chatgpt-wd -s "Rewrite as Shakespeare." -c 4 https://example.com
  chatgpt-wd --driver rod --endpoint ws://127.0.0.1:9222/devtools/browser/... "pirate ships"`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts, args[0], d)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to configuration file (default ~/.config/chatgpt-wd/config.yaml)")
	f.StringVarP(&opts.systemPrompt, "sys", "s", "", "system prompt sent with every text")
	f.StringVar(&opts.model, "model", "", "chat model to use")
	f.Float64Var(&opts.temperature, "temperature", 0, "sampling temperature")
	f.IntVarP(&opts.concurrency, "concurrency", "c", 0, "maximum completion requests in flight")
	f.IntVar(&opts.minLength, "min-length", 0, "minimum text length, in characters, to rewrite")
	f.Float64Var(&opts.rateLimit, "rate-limit", 0, "maximum completion requests per second (0 = unlimited)")
	f.StringVar(&opts.driver, "driver", "", "browser backend: playwright, rod or chromedp")
	f.StringVar(&opts.endpoint, "endpoint", "", "attach to a running browser at this CDP or control URL")
	f.BoolVar(&opts.headless, "headless", false, "run a launched browser without a window")
	f.BoolVar(&opts.strict, "strict", false, "exit with status 2 if any text failed to rewrite")
	f.BoolVar(&opts.keepOpen, "keep-open", false, "keep the browser open until interrupted")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile at exit")
	f.StringVar(&opts.verbosity, "verbosity", "", "console output: quiet, normal, verbose or debug")

	return cmd
}

func main() {
	if err := newRootCmd(defaultDeps()).ExecuteContext(context.Background()); err != nil {
		code := exitSetupFailed
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintf(os.Stderr, "chatgpt-wd: %v\n", err)
		os.Exit(code)
	}
}
