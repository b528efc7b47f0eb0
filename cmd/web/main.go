package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"

	"github.com/mkarsten/kaltvik/internal/broker"
	"github.com/mkarsten/kaltvik/internal/content"
	"github.com/mkarsten/kaltvik/internal/db"
	"github.com/mkarsten/kaltvik/internal/envstruct"
	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/game"
	"github.com/mkarsten/kaltvik/internal/logging"
	"github.com/mkarsten/kaltvik/internal/pprofserver"
	"github.com/mkarsten/kaltvik/internal/repositories"
)

// config is populated from the environment, with .env as a development
// convenience.
type config struct {
	Addr       string `env:"KALTVIK_ADDR" envDefault:"localhost:4000"`
	PprofPort  string `env:"KALTVIK_PPROF_PORT" envDefault:":6060"`
	SqliteURL  string `env:"KALTVIK_SQLITE_URL" envDefault:"./kaltvik.sqlite"`
	ContentDir string `env:"KALTVIK_CONTENT_DIR" envDefault:"./content"`
}

type application struct {
	logger         *slog.Logger
	engine         *game.Engine
	eventBroker    *broker.ChannelBroker[string, game.Event]
	sessionManager *scs.SessionManager
	saves          *repositories.SaveRepository

	// sessions holds the live session per save slot. A slot missing here is
	// rebuilt from its snapshot on demand. The engine assumes one caller per
	// session, so slotLocks serializes handler access per slot; mu guards
	// only the maps themselves.
	mu        sync.Mutex
	sessions  map[string]*game.Session
	slotLocks map[string]*sync.Mutex
}

func main() {
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})))
	ctx := context.Background()

	if err := run(ctx, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server failed", errors.SlogError(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded")
	}

	var cfg config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	// pprof listens on localhost so that it's not open to the world.
	pprofserver.Launch(cfg.PprofPort, logger)

	dbs, err := db.NewDatabase(cfg.SqliteURL)
	if err != nil {
		return errors.Wrap(err, "connect database")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db", slog.String("url", cfg.SqliteURL))

	catalog, err := content.Load(os.DirFS(cfg.ContentDir), logger)
	if err != nil {
		return errors.Wrap(err, "load content")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "content loaded",
		slog.Int("scenes", len(catalog.Scenes())), slog.Int("theories", len(catalog.Theories())))

	eventBroker := broker.NewChannelBroker[string, game.Event]()
	go eventBroker.Start()
	defer eventBroker.Stop()

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite.DB, 24*time.Hour)
	sessionManager.Lifetime = 12 * time.Hour

	app := application{
		logger:         logger,
		engine:         game.New(catalog, eventBroker, logger),
		eventBroker:    eventBroker,
		sessionManager: sessionManager,
		saves:          repositories.NewSaveRepository(dbs, logger),
		sessions:       map[string]*game.Session{},
		slotLocks:      map[string]*sync.Mutex{},
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}
