package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/reflexlab/reflex/internal/api"
	"github.com/reflexlab/reflex/internal/config"
	"github.com/reflexlab/reflex/internal/db"
	"github.com/reflexlab/reflex/internal/middleware"
	"github.com/reflexlab/reflex/internal/services"
)

// Set via -ldflags at build time.
var (
	commit    = ""
	buildTime = ""
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := db.Open(cfg.DBPath, cfg.MigrationsDir)
	if err != nil {
		logger.Error("open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("close store", slog.String("error", cerr.Error()))
		}
	}()

	admin := middleware.NewAdminAuth(cfg.AdminToken, cfg.AdminTokenHash, cfg.JWTSecret)
	router := api.NewRouter(api.Config{
		Sessions:  services.NewSessionService(store),
		Scores:    services.NewScoreService(store),
		Admin:     admin,
		Commit:    commit,
		BuildTime: buildTime,
	})

	// Serve the built frontend when configured; API routes win.
	if cfg.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	handler := middleware.Logging(logger)(
		middleware.SecureHeaders(middleware.NoStore(middleware.CORS(router))),
	)

	logger.Info("reflex server listening", slog.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
