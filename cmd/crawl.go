package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	statusadapter "github.com/bnema/fundcrawl/internal/adapters/render/status"
	"github.com/bnema/fundcrawl/internal/application"
	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const interruptedReason = "interrupted"

type crawlOptions struct {
	seed          uint64
	plain         bool
	expectedItems int
	batchSize     int
}

// crawlSession is what the host loop needs from either orchestrator.
type crawlSession interface {
	States() (<-chan domain.SessionState, func())
	Ticks() (<-chan domain.CountdownTick, func())
	Intents() (<-chan domain.Intent, func())
	State() domain.SessionState
	CancelSession(reason string) error
	Close()
}

type intentHandler func(ctx context.Context, intent domain.Intent)

func newCrawlCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run a crawl session against the configured browser",
	}

	cmd.AddCommand(
		newCrawlVisitCmd(app),
		newCrawlBatchesCmd(app),
	)

	return cmd
}

func newCrawlVisitCmd(app *app) *cobra.Command {
	var opts crawlOptions

	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Visit every configured fund page on a randomized schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, app, domain.VariantPageVisit, opts)
		},
	}

	addCrawlFlags(cmd, &opts)
	return cmd
}

func newCrawlBatchesCmd(app *app) *cobra.Command {
	var opts crawlOptions

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Page through the fund listing one batch at a time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, app, domain.VariantBatch, opts)
		},
	}

	addCrawlFlags(cmd, &opts)
	cmd.Flags().IntVar(&opts.expectedItems, "expected-items", 0, "Number of listing entries expected")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 20, "Entries revealed per batch")
	_ = cmd.MarkFlagRequired("expected-items")

	return cmd
}

func addCrawlFlags(cmd *cobra.Command, opts *crawlOptions) {
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed for the delay generator (0 picks one)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Log progress instead of drawing the live view")
}

func runCrawl(cmd *cobra.Command, app *app, variant domain.SessionVariant, opts crawlOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.cfg.logger(cmd.ErrOrStderr())

	sink, err := app.openSink()
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	engine := application.EngineDeps{Logger: logger}
	publisher, err := app.openPublisher()
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
		engine.Publisher = publisher
	}

	browser, err := startBrowser(ctx, cmd, app, opts.plain, logger)
	if err != nil {
		return err
	}
	defer func() { _ = browser.Close() }()

	var (
		session crawlSession
		start   func() (domain.SessionID, error)
		handle  intentHandler
		observe func(context.Context) error
	)

	switch variant {
	case domain.VariantBatch:
		engine.Calculator = app.batchCalculator(opts.seed)
		orch := application.NewBatchOrchestrator(application.BatchDeps{
			EngineDeps: engine,
			Automation: browser,
			Sink:       sink,
		})
		session = orch
		start = func() (domain.SessionID, error) {
			return orch.StartSession(ctx, application.StartBatchSessionCommand{
				ExpectedItems: opts.expectedItems,
				BatchSize:     opts.batchSize,
			})
		}
		handle = batchIntents(browser, orch, logger)

	default:
		engine.Calculator = app.calculator(opts.seed)
		collector, err := application.NewCollector(app.cfg.Collector, application.CollectorDeps{Logger: logger})
		if err != nil {
			return fmt.Errorf("build collector: %w", err)
		}
		orch, err := application.NewPageVisitOrchestrator(application.PageVisitDeps{
			EngineDeps: engine,
			Collector:  collector,
			Automation: browser,
			Source:     app.repo,
			Sink:       sink,
		})
		if err != nil {
			return fmt.Errorf("build orchestrator: %w", err)
		}
		session = orch
		start = func() (domain.SessionID, error) {
			return orch.StartSession(ctx, application.StartPageVisitCommand{})
		}
		handle = pageIntents(browser, orch, logger)
		observe = func(ctx context.Context) error {
			return browser.ObserveResponses(ctx, func(resp domain.CapturedResponse) {
				if err := orch.NotifyResponseCaptured(resp); err != nil {
					logger.Debug("response dropped", "url", resp.URL, "error", err)
				}
			})
		}
	}
	defer session.Close()

	states, unsubscribeStates := session.States()
	defer unsubscribeStates()
	ticks, unsubscribeTicks := session.Ticks()
	defer unsubscribeTicks()
	intents, unsubscribeIntents := session.Intents()
	defer unsubscribeIntents()

	id, err := start()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	runCtx, finish := context.WithCancel(ctx)
	defer finish()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return runIntents(gctx, intents, handle)
	})
	if observe != nil {
		g.Go(func() error {
			return observe(gctx)
		})
	}
	if addr := app.cfg.MetricsAddr; addr != "" {
		serveMetrics(gctx, g, addr, logger)
	}
	g.Go(func() error {
		defer finish()
		if opts.plain {
			return followStates(gctx, states, logger)
		}
		return statusadapter.Watch(gctx, statusadapter.Feed{States: states, Ticks: ticks}, cmd.OutOrStdout(), app.now)
	})

	waitErr := g.Wait()
	if ctx.Err() != nil {
		if err := session.CancelSession(interruptedReason); err != nil {
			logger.Warn("cancel session", "session", id, "error", err)
		}
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}

	rendered, err := app.statusRenderer(session.State(), statusadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func startBrowser(ctx context.Context, cmd *cobra.Command, app *app, plain bool, logger *slog.Logger) (ports.Browser, error) {
	open := func(ctx context.Context) (ports.Browser, error) {
		return app.openBrowser(ctx, logger)
	}
	if plain {
		return open(ctx)
	}
	return openBrowserWithSpinner(ctx, cmd.ErrOrStderr(), app.cfg.Browser.Driver, open)
}

func runIntents(ctx context.Context, intents <-chan domain.Intent, handle intentHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case intent, ok := <-intents:
			if !ok {
				return nil
			}
			handle(ctx, intent)
		}
	}
}

// pageIntents loads pages. Interactions are driven by the orchestrator
// itself, so their intents are only logged.
func pageIntents(nav ports.Navigator, orch *application.PageVisitOrchestrator, logger *slog.Logger) intentHandler {
	return func(ctx context.Context, intent domain.Intent) {
		if intent.Kind != domain.IntentNavigate {
			logger.Debug("intent", "kind", intent.Kind, "ref", intent.Ref, "step", intent.Step)
			return
		}

		if err := nav.Navigate(ctx, intent.URL); err != nil {
			if ctx.Err() != nil {
				return
			}
			reportNotify(logger, intent, orch.NotifyNavigationFailed(intent.Ref, err.Error()))
			return
		}
		reportNotify(logger, intent, orch.NotifyNavigationCompleted(intent.Ref))
	}
}

func batchIntents(loader ports.BatchLoader, orch *application.BatchOrchestrator, logger *slog.Logger) intentHandler {
	return func(ctx context.Context, intent domain.Intent) {
		if intent.Kind != domain.IntentLoadBatch {
			logger.Debug("intent", "kind", intent.Kind, "ref", intent.Ref)
			return
		}

		load, err := loader.LoadBatch(ctx, intent.Batch)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			reportNotify(logger, intent, orch.NotifyBatchFailed(intent.Batch, err.Error()))
			return
		}
		reportNotify(logger, intent, orch.NotifyBatchLoaded(intent.Batch, load.ItemsLoaded, load.HasMore))
	}
}

// reportNotify logs a rejected notification. A skip or cancel racing the
// browser makes stale results expected.
func reportNotify(logger *slog.Logger, intent domain.Intent, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnexpectedItem), errors.Is(err, domain.ErrSessionNotActive):
		logger.Debug("stale result", "kind", intent.Kind, "ref", intent.Ref, "error", err)
	default:
		logger.Warn("report result", "kind", intent.Kind, "ref", intent.Ref, "error", err)
	}
}

// followStates logs progress until the session ends.
func followStates(ctx context.Context, states <-chan domain.SessionState, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case state, ok := <-states:
			if !ok {
				return nil
			}
			logger.Info("progress",
				"session", state.SessionID,
				"current", state.CurrentRef,
				"completed", state.CompletedItems,
				"failed", state.FailedItems,
				"pending", state.PendingItems,
			)
			if !state.Active {
				return nil
			}
		}
	}
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
