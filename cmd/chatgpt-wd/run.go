package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/eiz/chatgpt-wd/pkg/browser"
	"github.com/eiz/chatgpt-wd/pkg/config"
	"github.com/eiz/chatgpt-wd/pkg/llm"
	"github.com/eiz/chatgpt-wd/pkg/llm/openai"
	"github.com/eiz/chatgpt-wd/pkg/logging"
	"github.com/eiz/chatgpt-wd/pkg/report"
	"github.com/eiz/chatgpt-wd/pkg/rewrite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// deps are the collaborators run creates. Tests replace them with fakes.
type deps struct {
	openSession  func(ctx context.Context, opts browser.Options) (browser.Session, error)
	newCompleter func(cfg *config.Config, token string) (llm.Completer, error)
	out          io.Writer
}

func defaultDeps() deps {
	return deps{
		openSession: browser.Open,
		newCompleter: func(cfg *config.Config, token string) (llm.Completer, error) {
			var opts []openai.ClientOption
			if cfg.LLM.BaseURL != "" {
				opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
			}
			return openai.NewClient(token, opts...)
		},
		out: os.Stderr,
	}
}

// run executes one rewrite of the page named by arg. Errors before dispatch
// are setup failures. Per-text failures only change the result when strict
// mode is on.
//
//nolint:gocyclo
func run(ctx context.Context, cmd *cobra.Command, opts *cliOptions, arg string, d deps) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), opts, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := report.ParseLevel(cfg.Logging.Verbosity)
	if err != nil {
		return err
	}
	progress := report.NewProgressTo(d.out, level)

	logger, err := logging.NewLogger("chatgpt-wd")
	if err != nil {
		progress.Warningf("%v", err)
	}
	defer logger.Close()
	if level < report.LevelDebug {
		_ = logging.SetLevel("info")
	}

	target, err := resolveTarget(arg)
	if err != nil {
		return err
	}

	token, err := cfg.ResolveToken()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	completer, err := d.newCompleter(cfg, token)
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	filter, err := rewrite.NewTextFilter(cfg.Rewrite.Exclude)
	if err != nil {
		return err
	}

	driver, err := browser.ParseDriver(cfg.Browser.Driver)
	if err != nil {
		return err
	}

	progress.Header(fmt.Sprintf("chatgpt-wd v%s", version))
	progress.Verbosef("session %s, log %s", logger.SessionID(), logger.LogPath())
	tmpl := buildTemplate(cfg)
	logger.Infof("rewriting %s with model %s via %s", target, tmpl.Model(), driver)

	session, err := d.openSession(ctx, browser.Options{
		Driver:   driver,
		Endpoint: cfg.Browser.Endpoint,
		Headless: cfg.Browser.Headless,
		Timeout:  cfg.Browser.Timeout,
	})
	if err != nil {
		return &rewrite.SetupError{Op: "open browser", Err: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warnf("failed to close browser: %v", err)
		}
	}()

	progress.Infof("Loading %s", target)
	if err := session.Navigate(ctx, target); err != nil {
		return &rewrite.SetupError{Op: "navigate to " + target, Err: err}
	}

	collector := &rewrite.Collector{
		Session:     session,
		MinLength:   cfg.Rewrite.MinLength,
		Filter:      filter,
		OnCandidate: progress.Candidate,
		Logger:      logger,
	}
	tasks, err := collector.Collect(ctx)
	if err != nil {
		return err
	}
	progress.Infof("Rewriting %d texts, %d at a time", len(tasks), cfg.Rewrite.Concurrency)

	registry := prometheus.NewRegistry()
	metrics, err := rewrite.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	dispatcher := rewrite.NewDispatcher(completer, tmpl, rewrite.NewSessionMutator(session),
		rewrite.WithConcurrency(cfg.Rewrite.Concurrency),
		rewrite.WithRateLimit(cfg.Rewrite.RateLimit, cfg.Rewrite.Burst),
		rewrite.WithTransform(cfg.Format.Transform()),
		rewrite.WithErrorSink(rewrite.Tee(rewrite.NewLogSink(logger), progress)),
		rewrite.WithMetrics(metrics),
		rewrite.WithObserver(progress.Outcome),
	)
	result := dispatcher.Dispatch(ctx, tasks)
	progress.Summary(result)
	logger.Infow("run finished", "tasks", len(tasks), "succeeded", result.Succeeded(), "failed", result.Failed())

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, registry); err != nil {
			progress.Warningf("failed to write metrics: %v", err)
		}
	}

	if opts.keepOpen {
		progress.Infof("Browser left open, press Ctrl-C to exit")
		<-ctx.Done()
	}

	if cfg.Rewrite.Strict && result.Failed() > 0 {
		return &exitError{
			code: exitTaskFailed,
			err:  fmt.Errorf("%d of %d texts failed to rewrite", result.Failed(), len(result.Outcomes)),
		}
	}
	return nil
}

// applyFlags copies every flag the user set onto cfg
func applyFlags(flags *pflag.FlagSet, opts *cliOptions, cfg *config.Config) {
	if flags.Changed("sys") {
		cfg.LLM.SystemPrompt = opts.systemPrompt
	}
	if flags.Changed("model") {
		cfg.LLM.Model = opts.model
	}
	if flags.Changed("temperature") {
		t := opts.temperature
		cfg.LLM.Temperature = &t
	}
	if flags.Changed("concurrency") {
		cfg.Rewrite.Concurrency = opts.concurrency
	}
	if flags.Changed("min-length") {
		cfg.Rewrite.MinLength = opts.minLength
	}
	if flags.Changed("rate-limit") {
		cfg.Rewrite.RateLimit = opts.rateLimit
	}
	if flags.Changed("strict") {
		cfg.Rewrite.Strict = opts.strict
	}
	if flags.Changed("driver") {
		cfg.Browser.Driver = opts.driver
	}
	if flags.Changed("endpoint") {
		cfg.Browser.Endpoint = opts.endpoint
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = opts.headless
	}
	if flags.Changed("verbosity") {
		cfg.Logging.Verbosity = opts.verbosity
	}
}

// buildTemplate creates the prompt template shared by every request of the run
func buildTemplate(cfg *config.Config) *llm.Template {
	system := cfg.LLM.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	var opts []llm.TemplateOption
	if cfg.LLM.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*cfg.LLM.Temperature))
	}
	if cfg.LLM.TopP != nil {
		opts = append(opts, llm.WithTopP(*cfg.LLM.TopP))
	}
	if cfg.LLM.MaxTokens != nil {
		opts = append(opts, llm.WithMaxTokens(*cfg.LLM.MaxTokens))
	}
	if cfg.LLM.PresencePenalty != nil {
		opts = append(opts, llm.WithPresencePenalty(*cfg.LLM.PresencePenalty))
	}
	if cfg.LLM.FrequencyPenalty != nil {
		opts = append(opts, llm.WithFrequencyPenalty(*cfg.LLM.FrequencyPenalty))
	}
	if cfg.LLM.Stream {
		opts = append(opts, llm.WithStream(true))
	}
	return llm.NewTemplate(cfg.LLM.Model, system, opts...)
}
