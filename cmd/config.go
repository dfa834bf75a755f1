package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	natspub "github.com/bnema/fundcrawl/internal/adapters/publish/nats"
	tomlrepo "github.com/bnema/fundcrawl/internal/adapters/repo/toml"
	sqlitesink "github.com/bnema/fundcrawl/internal/adapters/sink/sqlite"
	"github.com/bnema/fundcrawl/internal/application"
	"github.com/bnema/fundcrawl/internal/domain"
	"github.com/bnema/fundcrawl/internal/logging"
	"github.com/spf13/viper"
)

const (
	envPrefix = "FUNDCRAWL"

	keyDelayMin      = "schedule.delay_min"
	keyDelayMax      = "schedule.delay_max"
	keySteps         = "schedule.steps"
	keyStepMinDelays = "schedule.step_min_delays"
	keyFinalStep     = "collector.final_step"
	keyDrainSlot     = "collector.drain_slot"
	keyRoutes        = "collector.routes"
	keyDriver        = "browser.driver"
	keyHeadless      = "browser.headless"
	keyThrottle      = "browser.throttle"
	keyLatency       = "browser.latency"
	keyUserAgent     = "browser.user_agent"
	keySelectors     = "browser.selectors"
	keyCapture       = "browser.capture_prefixes"
	keyBodyLimit     = "browser.body_limit"
	keyListURL       = "browser.list_url"
	keyListItem      = "browser.list_item_selector"
	keyLoadMore      = "browser.load_more_selector"
	keyMetricsAddr   = "metrics.addr"
	keyLogLevel      = "log.level"
	keyLogFormat     = "log.format"

	driverSimulated = "simulated"
	driverChromedp  = "chromedp"
)

var defaultSteps = []string{"expand_holdings", "open_fees", "select_chart_period"}

type routeConfig struct {
	Pattern     string `mapstructure:"pattern"`
	Slot        string `mapstructure:"slot"`
	Method      string `mapstructure:"method"`
	JSONPath    string `mapstructure:"json_path"`
	RequireJSON bool   `mapstructure:"require_json"`
}

var defaultRoutes = []routeConfig{
	{Pattern: "/_api/fund-guide/guide/", Slot: "fund_guide", JSONPath: "isin"},
	{Pattern: "/_api/fund-guide/chart/", Slot: "chart", JSONPath: "dataSerie"},
}

type browserConfig struct {
	Driver           string
	Headless         bool
	Throttle         time.Duration
	Latency          time.Duration
	UserAgent        string
	Selectors        map[domain.StepKind]string
	CapturePrefixes  []string
	BodyLimit        int
	ListURL          string
	ListItemSelector string
	LoadMoreSelector string
}

type config struct {
	DBPath        string
	NATSURL       string
	Subject       string
	Delays        application.DelayRange
	Steps         []domain.StepKind
	StepMinDelays map[domain.StepKind]time.Duration
	Collector     application.CollectorConfig
	Browser       browserConfig
	MetricsAddr   string
	LogLevel      slog.Level
	LogFormat     string
}

func newViper(homeDir string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(sqlitesink.DBPathKey, filepath.Join(homeDir, tomlrepo.ConfigDir, "visits.db"))
	v.SetDefault(natspub.URLKey, "")
	v.SetDefault(natspub.SubjectKey, natspub.DefaultSubject)
	v.SetDefault(keyDelayMin, application.DefaultDelayRange.Min)
	v.SetDefault(keyDelayMax, application.DefaultDelayRange.Max)
	v.SetDefault(keySteps, defaultSteps)
	v.SetDefault(keyStepMinDelays, map[string]any{})
	v.SetDefault(keyFinalStep, "select_chart_period")
	v.SetDefault(keyDrainSlot, "chart")
	v.SetDefault(keyDriver, driverSimulated)
	v.SetDefault(keyHeadless, true)
	v.SetDefault(keyThrottle, 750*time.Millisecond)
	v.SetDefault(keyLatency, 300*time.Millisecond)
	v.SetDefault(keyUserAgent, "")
	v.SetDefault(keySelectors, map[string]any{})
	v.SetDefault(keyCapture, []string{"/_api/"})
	v.SetDefault(keyBodyLimit, 4<<20)
	v.SetDefault(keyListURL, "")
	v.SetDefault(keyListItem, "")
	v.SetDefault(keyLoadMore, "")
	v.SetDefault(keyMetricsAddr, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, logging.FormatText)

	return v
}

// loadConfig reads everything but the items path, which the repository
// resolves itself. v must already have read the config file.
func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		DBPath:      strings.TrimSpace(v.GetString(sqlitesink.DBPathKey)),
		NATSURL:     strings.TrimSpace(v.GetString(natspub.URLKey)),
		Subject:     v.GetString(natspub.SubjectKey),
		Delays:      application.DelayRange{Min: v.GetDuration(keyDelayMin), Max: v.GetDuration(keyDelayMax)},
		MetricsAddr: strings.TrimSpace(v.GetString(keyMetricsAddr)),
		LogFormat:   v.GetString(keyLogFormat),
	}
	if err := cfg.Delays.Validate(); err != nil {
		return config{}, fmt.Errorf("schedule: %w", err)
	}

	level, err := logging.ParseLevel(v.GetString(keyLogLevel))
	if err != nil {
		return config{}, err
	}
	cfg.LogLevel = level

	for _, raw := range v.GetStringSlice(keySteps) {
		if step := strings.TrimSpace(raw); step != "" {
			cfg.Steps = append(cfg.Steps, domain.StepKind(step))
		}
	}
	if len(cfg.Steps) == 0 {
		return config{}, domain.NewValidationError(keySteps, "must name at least one step")
	}

	cfg.StepMinDelays = map[domain.StepKind]time.Duration{}
	for step, raw := range v.GetStringMapString(keyStepMinDelays) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return config{}, fmt.Errorf("parse %s.%s: %w", keyStepMinDelays, step, err)
		}
		cfg.StepMinDelays[domain.StepKind(step)] = d
	}

	routes := defaultRoutes
	if v.IsSet(keyRoutes) {
		routes = nil
		if err := v.UnmarshalKey(keyRoutes, &routes); err != nil {
			return config{}, fmt.Errorf("decode %s: %w", keyRoutes, err)
		}
	}
	cfg.Collector = application.CollectorConfig{
		Steps:     cfg.Steps,
		FinalStep: domain.StepKind(v.GetString(keyFinalStep)),
		DrainSlot: domain.SlotName(v.GetString(keyDrainSlot)),
	}
	for _, route := range routes {
		cfg.Collector.Routes = append(cfg.Collector.Routes, application.ResponseRoute{
			Pattern:     route.Pattern,
			Slot:        domain.SlotName(route.Slot),
			Method:      route.Method,
			JSONPath:    route.JSONPath,
			RequireJSON: route.RequireJSON,
		})
	}

	cfg.Browser = browserConfig{
		Driver:           strings.ToLower(strings.TrimSpace(v.GetString(keyDriver))),
		Headless:         v.GetBool(keyHeadless),
		Throttle:         v.GetDuration(keyThrottle),
		Latency:          v.GetDuration(keyLatency),
		UserAgent:        v.GetString(keyUserAgent),
		Selectors:        map[domain.StepKind]string{},
		CapturePrefixes:  v.GetStringSlice(keyCapture),
		BodyLimit:        v.GetInt(keyBodyLimit),
		ListURL:          v.GetString(keyListURL),
		ListItemSelector: v.GetString(keyListItem),
		LoadMoreSelector: v.GetString(keyLoadMore),
	}
	for step, selector := range v.GetStringMapString(keySelectors) {
		cfg.Browser.Selectors[domain.StepKind(step)] = selector
	}
	if cfg.Browser.BodyLimit <= 0 {
		return config{}, domain.NewValidationError(keyBodyLimit, "must be positive")
	}
	switch cfg.Browser.Driver {
	case driverSimulated, driverChromedp:
	default:
		return config{}, domain.NewValidationError(keyDriver, fmt.Sprintf("unknown driver %q", cfg.Browser.Driver))
	}

	return cfg, nil
}

func (c config) logger(w io.Writer) *slog.Logger {
	return logging.New(w, c.LogLevel, c.LogFormat)
}

func (c config) minDelay(step domain.StepKind) time.Duration {
	return c.StepMinDelays[step]
}
