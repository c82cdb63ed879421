package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/khankhulgun/khanstyle"
	"github.com/khankhulgun/khanstyle/catalog"
	"github.com/khankhulgun/khanstyle/config"
	"github.com/khankhulgun/khanstyle/controllers"
	"github.com/khankhulgun/khanstyle/logger"
	"github.com/khankhulgun/khanstyle/maplayer"
	"github.com/khankhulgun/khanstyle/reconcile"
	"github.com/khankhulgun/khanstyle/style"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logs, err := logger.New(logger.Options{App: "khanstyle", Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	log.Logger = logs

	filters, err := maplayer.NewFilterCompiler(cfg.FilterCache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create filter compiler")
	}
	defer filters.Close()

	engine, err := reconcile.New(
		reconcile.WithLogger(logs.With().Str("component", "reconcile").Logger()),
		reconcile.WithFilterCompiler(filters),
		reconcile.WithLayerAdded(func(l *style.Layer) {
			log.Debug().Str("layer", l.ID).Str("type", l.Type).Msg("layer in style")
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create engine")
	}
	defer engine.Close()

	mem := style.NewMemory()
	engine.Bind(mem)

	handler := &controllers.Handler{
		Engine:   engine,
		Style:    mem,
		Log:      logs.With().Str("component", "http").Logger(),
		MapID:    cfg.MapID,
		IconDir:  cfg.IconDir,
		Snapshot: cfg.Snapshot,
	}

	if cfg.DB != "" {
		db, err := catalog.Open(cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open catalog")
		}
		if cfg.Migrate {
			if err := catalog.Migrate(db); err != nil {
				log.Fatal().Err(err).Msg("failed to migrate catalog")
			}
		}
		if cfg.Seed {
			if err := catalog.Seed(db, cfg.MapID); err != nil {
				log.Fatal().Err(err).Msg("failed to seed catalog")
			}
		}
		store, err := catalog.NewStore(db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create catalog store")
		}
		defer store.Close()
		handler.Store = store

		doc, err := store.Load(cfg.MapID)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			log.Warn().Str("map", cfg.MapID).Msg("map not in catalog, starting empty")
		case err != nil:
			log.Fatal().Err(err).Msg("failed to load map")
		default:
			mount(engine, doc, "catalog")
		}
	}

	if cfg.StyleFile != "" {
		doc, err := catalog.LoadFile(cfg.StyleFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read style file")
		}
		mount(engine, doc, cfg.StyleFile)
	}

	mem.Load()

	app := fiber.New(fiber.Config{
		AppName:     "khanstyle",
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	khanstyle.Set(app, handler)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("addr", cfg.Addr).Str("map", cfg.MapID).Msg("khanstyle started")
	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("khanstyle stopped")
	}
}

func mount(engine *reconcile.Engine, doc catalog.Document, from string) {
	if err := khanstyle.Mount(engine, doc); err != nil {
		log.Error().Err(err).Str("from", from).Msg("some declarations were rejected")
	}
	log.Info().Str("from", from).Int("sources", len(doc.Sources)).Int("layers", len(doc.Layers)).Msg("style declared")
}
