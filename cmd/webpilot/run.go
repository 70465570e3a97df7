package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/extract"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/openai"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/navigator"
	"github.com/entrhq/webpilot/pkg/planner"
	"github.com/entrhq/webpilot/pkg/types"
)

// Extractor choices
const (
	extractorLLM   = "llm"
	extractorTable = "table"
)

type runOptions struct {
	URL        string
	Task       string
	ConfigFile string
	Output     string
	Extractor  string
	Headless   *bool
	MaxSteps   int
	Verbose    bool
}

// dependencies are the external collaborators of a run.
type dependencies struct {
	launcher  browser.Launcher
	planner   llm.Provider
	extractor llm.Provider
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a navigation task against a URL",
		Long: `Open the URL in a browser, let the planner act on the page until it commits
the region holding the answer, then extract that region as a JSON table.`,
		Example: `  webpilot run --url https://example.com/trees --task "List the heaviest trees"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigFile, _ = cmd.Flags().GetString("config")
			if cmd.Flags().Changed("headless") {
				headless, _ := cmd.Flags().GetBool("headless")
				opts.Headless = &headless
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			logging.Configure(logging.Options{
				Dir:        cfg.Logging.Dir,
				Level:      cfg.Logging.Level,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAgeDays: cfg.Logging.MaxAgeDays,
				Compress:   cfg.Logging.Compress,
				Console:    cfg.Logging.Console,
			})
			defer func() { _ = logging.Shutdown() }()

			deps, err := newDependencies(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.Output != "" {
				f, err := os.Create(opts.Output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			return execute(cmd.Context(), cfg, opts, deps, out, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.URL, "url", "u", "", "page to start from (required)")
	cmd.Flags().StringVarP(&opts.Task, "task", "t", "", "what to find on the site (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON table to this file instead of stdout")
	cmd.Flags().StringVar(&opts.Extractor, "extractor", extractorLLM, "extraction method: llm or table")
	cmd.Flags().Bool("headless", true, "run the browser without a window")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "override planner.max_steps")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print each tool call to stderr")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}

func loadConfig(opts *runOptions) (*config.Config, error) {
	if opts.Extractor != extractorLLM && opts.Extractor != extractorTable {
		return nil, fmt.Errorf("unknown extractor %q (use %s or %s)", opts.Extractor, extractorLLM, extractorTable)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.Headless != nil {
		cfg.Browser.Headless = *opts.Headless
	}
	if opts.MaxSteps > 0 {
		cfg.Planner.MaxSteps = opts.MaxSteps
	}
	return cfg, nil
}

func newDependencies(cfg *config.Config) (*dependencies, error) {
	plannerLLM, err := openai.NewProvider(cfg.LLM.APIKey,
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create planner provider: %w", err)
	}

	extractionLLM := llm.Provider(plannerLLM)
	if model := cfg.LLM.ResolvedExtractionModel(); model != cfg.LLM.Model {
		extractionLLM, err = openai.NewProvider(cfg.LLM.APIKey,
			openai.WithModel(model),
			openai.WithBaseURL(cfg.LLM.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to create extraction provider: %w", err)
		}
	}

	return &dependencies{
		launcher:  &browser.PlaywrightLauncher{},
		planner:   plannerLLM,
		extractor: extractionLLM,
	}, nil
}

// execute runs navigation and extraction and writes the table as JSON.
func execute(ctx context.Context, cfg *config.Config, opts *runOptions, deps *dependencies, out, status io.Writer) error {
	logger, err := logging.NewLogger("run")
	if err != nil {
		logger = logging.Nop()
	}
	if opts.Verbose {
		if dir, err := logging.GetLogDirectory(); err == nil {
			fmt.Fprintf(status, "logs: %s (session %s)\n", dir, logging.GetSessionID())
		}
	}

	session := browser.NewSession(opts.URL,
		browser.WithLauncher(deps.launcher),
		browser.WithHeadless(cfg.Browser.Headless),
		browser.WithViewport(cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight),
		browser.WithTimeout(cfg.Browser.Timeout),
		browser.WithLogger(componentLogger("browser")))
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer func() {
		if err := session.Stop(); err != nil {
			logger.Warnf("failed to stop session: %v", err)
		}
	}()

	policy, err := browser.NewURLPolicy(cfg.Navigation.AllowedURLs)
	if err != nil {
		return fmt.Errorf("invalid navigation.allowed_urls: %w", err)
	}
	if patterns := policy.Patterns(); len(patterns) > 0 {
		logger.Infof("navigation restricted to %s", strings.Join(patterns, ", "))
		if opts.Verbose {
			fmt.Fprintf(status, "allowed urls: %s\n", strings.Join(patterns, ", "))
		}
	}
	toolset := browser.NewToolset(session,
		browser.WithURLPolicy(policy),
		browser.WithToolsetLogger(componentLogger("toolset")))
	waiter := browser.NewWaitController(toolset.Locator(),
		browser.WithPollInterval(cfg.Wait.PollInterval),
		browser.WithDefaultTimeout(cfg.Wait.DefaultTimeout),
		browser.WithWaitLogger(componentLogger("wait")))

	llmPlanner := planner.NewLLMPlanner(deps.planner,
		planner.WithObservationTokens(cfg.Planner.ObservationTokens),
		planner.WithLogger(componentLogger("planner")))

	navOpts := []navigator.Option{
		navigator.WithToolset(toolset),
		navigator.WithWaitController(waiter),
		navigator.WithMaxSteps(cfg.Planner.MaxSteps),
		navigator.WithLogger(componentLogger("navigator")),
	}
	if opts.Verbose {
		navOpts = append(navOpts, navigator.WithObserver(progressPrinter(status)))
	}

	nav, err := navigator.New(session, llmPlanner, navOpts...)
	if err != nil {
		return err
	}

	result, err := nav.Run(ctx, opts.Task)
	if err != nil {
		if errors.Is(err, navigator.ErrNavigationFailed) {
			return fmt.Errorf("%w (after %d steps: %s)", err, result.Steps, result.Reason)
		}
		return err
	}
	logger.Infof("run %s committed %q in %s", result.RunID, result.Selector, result.Duration)

	var ex extract.Extractor = extract.TableExtractor{}
	if opts.Extractor == extractorLLM {
		ex = extract.NewLLMExtractor(deps.extractor, extract.WithLogger(componentLogger("extract")))
	}

	table, err := extract.Run(ctx, nav.Handoff(), ex, opts.Task)
	if err != nil {
		return err
	}
	if table.Empty() {
		logger.Warnf("extraction from %q produced an empty table", result.Selector)
		if opts.Verbose {
			fmt.Fprintln(status, "warning: extracted table is empty")
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(table)
}

func componentLogger(name string) *logging.Logger {
	l, err := logging.NewLogger(name)
	if err != nil {
		return logging.Nop()
	}
	return l
}

func progressPrinter(w io.Writer) navigator.Observer {
	return func(e *types.Event) {
		switch e.Type {
		case types.EventTypeToolCall:
			fmt.Fprintf(w, "[%d] %s %v\n", e.Step, e.ToolName, e.ToolInput)
		case types.EventTypeToolResult:
			mark := "ok"
			if !e.OK {
				mark = "failed"
			}
			fmt.Fprintf(w, "    %s: %s\n", mark, firstLine(e.ToolOutput))
		case types.EventTypePhaseChange:
			fmt.Fprintf(w, "    phase %s\n", e.Phase)
		case types.EventTypeAbandoned:
			fmt.Fprintf(w, "abandoned: %v\n", e.Metadata["reason"])
		case types.EventTypeCommitted:
			fmt.Fprintf(w, "committed %v\n", e.Metadata["selector"])
		}
	}
}

func firstLine(s string) string {
	const limit = 120
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
