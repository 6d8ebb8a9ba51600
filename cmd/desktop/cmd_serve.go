package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"ndi_desktop/internal/catalog"
	"ndi_desktop/internal/config"
	"ndi_desktop/internal/content"
	"ndi_desktop/internal/desktop"
	"ndi_desktop/internal/logging"
	"ndi_desktop/internal/messaging/inproc"
	"ndi_desktop/internal/orchestrator"
	"ndi_desktop/internal/web"
)

func newServeCmd(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the desktop web server",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.Component("desktop")
	cat := catalog.Default()
	if err := cat.Validate(); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	var (
		docs    content.Store
		dialogs *content.DirStore
	)
	if cfg.Content.BaseURL != "" {
		docs = content.NewHTTPStore(cfg.Content.BaseURL, cfg.ContentTimeout())
	} else {
		dialogs, err = content.NewDirStore(cfg.Content.Dir)
		if err != nil {
			return fmt.Errorf("open content directory: %w", err)
		}
		docs = dialogs
	}

	basePath := cfg.NormalizedBasePath()
	bus := inproc.New(cfg.Transport.Buffer)
	engine := orchestrator.New(cat, docs, store, bus, orchestrator.Config{
		BasePath:   basePath,
		StorageKey: cfg.Storage.Key,
		MaxToasts:  cfg.Toasts.Max,
		ToastTTL:   cfg.ToastTTL(),
	}, logging.Component("engine"))
	shell := desktop.NewShell(cat, engine, bus, desktop.Config{
		BasePath:      basePath,
		DefaultWidth:  cfg.Window.DefaultWidth,
		DefaultHeight: cfg.Window.DefaultHeight,
		MinWidth:      cfg.Window.MinWidth,
		MinHeight:     cfg.Window.MinHeight,
		OffsetStep:    cfg.Window.OffsetStep,
		InitialX:      cfg.Window.InitialX,
		InitialY:      cfg.Window.InitialY,
		InitialZ:      cfg.Window.InitialZ,
	}, logging.Component("shell"))
	engine.AttachWindows(shell)
	engine.Init(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		engine.Run(ctx, bus.Inbox())
	}()

	server, err := web.NewServer(cat, engine, shell, bus, dialogs, web.Options{
		Addr:      cfg.Server.Addr,
		BasePath:  basePath,
		PublicDir: cfg.Server.PublicDir,
	}, logging.Component("web"))
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("db", cfg.Storage.DBPath).
		Str("content", firstNonEmpty(cfg.Content.BaseURL, cfg.Content.Dir)).
		Str("config", cfg.Path).
		Msg("ndi desktop started")

	err = server.Start()
	cancel()
	<-runDone
	engine.WaitContent()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}
