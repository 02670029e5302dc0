// Package bootstrap assembles the bot from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	coreconfig "github.com/m3rciful/currencybot/core/config"
	"github.com/m3rciful/currencybot/core/conversation"
	"github.com/m3rciful/currencybot/core/i18n"
	"github.com/m3rciful/currencybot/core/logger"
	"github.com/m3rciful/currencybot/core/menu"
	"github.com/m3rciful/currencybot/core/metrics"
	"github.com/m3rciful/currencybot/core/netutil"
	"github.com/m3rciful/currencybot/core/rates"
	"github.com/m3rciful/currencybot/core/session"
	coretelegram "github.com/m3rciful/currencybot/core/telegram"
	"github.com/m3rciful/currencybot/core/telegram/adapter"
	"github.com/m3rciful/currencybot/core/telegram/commands"
	"github.com/m3rciful/currencybot/core/telegram/router"
	tgsender "github.com/m3rciful/currencybot/core/telegram/sender"
)

// Options control the bootstrap pipeline. Zero fields get production defaults.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Localizer  *i18n.Catalog
	Registry   *prometheus.Registry
	HTTPClient *http.Client
	Now        func() time.Time
}

// App holds the wired components.
type App struct {
	Config   *coreconfig.Config
	Catalog  *i18n.Catalog
	Store    *session.MemoryStore
	Rates    *rates.Client
	Engine   *conversation.Engine
	Adapter  *adapter.Adapter
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Commands *coretelegram.Registry
	Modules  Modules
}

// DefaultCommands is the command menu published to Telegram.
func DefaultCommands() []commands.Command {
	return []commands.Command{
		{Name: conversation.CmdStart, Description: i18n.CommandStart},
		{Name: conversation.CmdGo, Description: i18n.CommandGo},
		{Name: conversation.CmdToday, Description: i18n.CommandToday},
		{Name: conversation.CmdYesterday, Description: i18n.CommandYesterday},
		{Name: conversation.CmdLanguage, Description: i18n.CommandLanguage},
		{Name: conversation.CmdHelp, Description: i18n.CommandHelp},
	}
}

// Run initializes the logger and wires catalog, session store, rate client,
// engine and Telegram adapter.
func Run(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	catalog := opts.Localizer
	if catalog == nil {
		var err error
		if catalog, err = i18n.NewCatalog(cfg.Locale.Default); err != nil {
			return nil, fmt.Errorf("bootstrap: i18n: %w", err)
		}
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := metrics.New(reg)

	store := session.NewMemoryStore()
	metrics.RegisterSessions(reg, store.Len)

	hc := opts.HTTPClient
	if hc == nil {
		// One attempt per lookup; the user can press Repeat.
		hc = netutil.NewClient(netutil.ClientOptions{Timeout: cfg.Rates.Timeout()})
	}
	src, err := rates.NewClient(cfg.Rates.BaseURL, hc, rates.WithObserver(m))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: rates: %w", err)
	}

	engine := conversation.New(store, src, catalog, menu.NewBuilder(catalog, cfg.Rates.Currencies), conversation.Options{
		Currencies: cfg.Rates.Currencies,
		Location:   cfg.Locale.Location(),
		Now:        opts.Now,
		Observer:   m,
	})

	cmds := coretelegram.NewRegistry()
	for _, cmd := range DefaultCommands() {
		if err := cmds.RegisterCommand(cmd); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}

	app := &App{
		Config:   cfg,
		Catalog:  catalog,
		Store:    store,
		Rates:    src,
		Engine:   engine,
		Adapter:  adapter.New(engine, session.NewLocker(), adapter.WithLocalizer(catalog)),
		Metrics:  m,
		Registry: reg,
		Commands: cmds,
	}
	if cfg.Metrics.Listen != "" {
		app.Modules.Services = append(app.Modules.Services, NewService("metrics", func(ctx context.Context) error {
			return metrics.Serve(ctx, cfg.Metrics.Listen, cfg.Metrics.Path, reg)
		}))
	}

	logger.Info(context.Background(), logger.APP, "bootstrap",
		slog.String("status", "ok"),
		slog.Int("currencies", len(cfg.Rates.Currencies)),
		slog.Int("languages", len(catalog.Languages())),
		slog.String("lang", catalog.Default()),
	)
	return app, nil
}

// CoreConfig satisfies cmd.ConfigCarrier.
func (a *App) CoreConfig() *coreconfig.Config { return a.Config }

// TelegramRunOptions builds the runtime options: middleware chain, routes
// bound to the adapter, the command menu and lifecycle hooks that run the
// background services.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if a == nil || a.Config == nil {
		return coretelegram.RunOptions{}, errors.New("bootstrap: app not initialized")
	}
	var stopServices func() error
	return coretelegram.RunOptions{
		Config:      a.Config,
		Registry:    a.Commands,
		Localizer:   a.Catalog,
		Middlewares: coretelegram.DefaultMiddlewares(a.Config, a.Metrics, nil),
		Routes:      router.Routes(a.Commands, a.Adapter.Handle),
		DispatcherOptions: tgsender.Options{
			MaxRetries: 2,
			Observer:   a.Metrics,
		},
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			stopServices = a.Modules.Start(ctx)
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			if stopServices == nil {
				return nil
			}
			return stopServices()
		},
	}, nil
}
