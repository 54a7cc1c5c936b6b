package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/kavinsood/kite/internal/config"
	"github.com/kavinsood/kite/internal/handlers"
	"github.com/kavinsood/kite/internal/middleware"
	"github.com/kavinsood/kite/internal/repo"
	"github.com/kavinsood/kite/internal/service"
)

func main() {
	cfg := config.NewConfig()

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()
	middleware.SetLogger(logger)

	db, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatalw("init database", "dsn", cfg.DatabaseDSN, "error", err)
	}

	noteService := service.NewNoteService(repo.NewNoteRepository(db))
	handler := handlers.NewHandler(noteService, logger, cfg)

	logger.Infow("note store listening", "addr", cfg.BaseURL)
	if err := http.ListenAndServe(cfg.BaseURL, handler.Router); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}
