package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	chromedpdriver "github.com/bnema/fundcrawl/internal/adapters/automation/chromedp"
	"github.com/bnema/fundcrawl/internal/adapters/automation/simulated"
	natspub "github.com/bnema/fundcrawl/internal/adapters/publish/nats"
	statusadapter "github.com/bnema/fundcrawl/internal/adapters/render/status"
	tomlrepo "github.com/bnema/fundcrawl/internal/adapters/repo/toml"
	sqlitesink "github.com/bnema/fundcrawl/internal/adapters/sink/sqlite"
	"github.com/bnema/fundcrawl/internal/application"
	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/ports"
)

type app struct {
	cfg            config
	repo           *tomlrepo.Repository
	service        *application.Service
	statusRenderer func(domain.SessionState, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	v := newViper(homeDir)
	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire work item repository: %w", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{
		cfg:            cfg,
		repo:           repo,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}
	a.service = application.NewService(repo, a.calculator(0), ports.SystemClock{})

	return a, nil
}

// calculator draws delays from the configured range. A zero seed picks one
// from the clock.
func (a *app) calculator(seed uint64) *application.ScheduleCalculator {
	if seed == 0 {
		seed = uint64(a.now().UnixNano())
	}
	return application.NewScheduleCalculator(
		application.NewRandomDelayProvider(a.cfg.Delays, seed),
		a.cfg.Steps,
	)
}

func (a *app) batchCalculator(seed uint64) *application.ScheduleCalculator {
	if seed == 0 {
		seed = uint64(a.now().UnixNano())
	}
	return application.NewScheduleCalculator(
		application.NewRandomDelayProvider(a.cfg.Delays, seed),
		[]domain.StepKind{domain.StepLoadBatch},
	)
}

func (a *app) openSink() (*sqlitesink.Sink, error) {
	sink, err := sqlitesink.Open(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open visit store: %w", err)
	}
	return sink, nil
}

// openPublisher returns nil when no NATS url is configured.
func (a *app) openPublisher() (*natspub.Publisher, error) {
	if a.cfg.NATSURL == "" {
		return nil, nil
	}

	publisher, err := natspub.Connect(natspub.Config{URL: a.cfg.NATSURL, Subject: a.cfg.Subject})
	if err != nil {
		return nil, fmt.Errorf("wire event publisher: %w", err)
	}
	return publisher, nil
}

func (a *app) openBrowser(ctx context.Context, logger *slog.Logger) (ports.Browser, error) {
	b := a.cfg.Browser
	if b.Driver == driverChromedp {
		browser, err := chromedpdriver.New(ctx, chromedpdriver.Config{
			Headless:         b.Headless,
			UserAgent:        b.UserAgent,
			Throttle:         b.Throttle,
			Selectors:        b.Selectors,
			MinDelays:        a.cfg.StepMinDelays,
			CapturePrefixes:  b.CapturePrefixes,
			BodyLimit:        b.BodyLimit,
			ListURL:          b.ListURL,
			ListItemSelector: b.ListItemSelector,
			LoadMoreSelector: b.LoadMoreSelector,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("start chrome: %w", err)
		}
		return browser, nil
	}

	sim := simulated.DefaultConfig()
	sim.Latency = b.Latency
	sim.MinDelays = a.cfg.StepMinDelays
	return simulated.New(sim), nil
}
