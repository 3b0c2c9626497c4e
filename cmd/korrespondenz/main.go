package main

import (
	"fmt"
	"os"

	"github.com/dhelbig/korrespondenz/internal/archive"
	"github.com/dhelbig/korrespondenz/internal/auth"
	"github.com/dhelbig/korrespondenz/internal/config"
	"github.com/dhelbig/korrespondenz/internal/db"
	"github.com/dhelbig/korrespondenz/internal/excel"
	httphandler "github.com/dhelbig/korrespondenz/internal/http"
	"github.com/dhelbig/korrespondenz/internal/http/middleware"
	"github.com/dhelbig/korrespondenz/internal/logger"
	"github.com/dhelbig/korrespondenz/internal/ollama"
	"github.com/dhelbig/korrespondenz/internal/render"
	"github.com/dhelbig/korrespondenz/internal/repository"
	"github.com/dhelbig/korrespondenz/internal/sequence"
	"github.com/dhelbig/korrespondenz/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contactRepo := repository.NewContactRepository(database)
	documentRepo := repository.NewDocumentRepository(database)
	allocator := sequence.NewAllocator()

	renderer, err := newRenderer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init renderer")
	}

	paperless := archive.NewPaperlessClient(cfg.Paperless)
	ollamaClient := ollama.NewClient(cfg.Ollama)
	registerExporter := excel.NewGenerator()

	documentService := service.NewDocumentService(
		contactRepo, documentRepo, allocator, renderer,
		paperless, registerExporter, cfg, log)
	contactService := service.NewContactService(contactRepo, log)
	draftService := service.NewDraftService(ollamaClient, contactRepo, log)

	handler := httphandler.NewHandler(documentService, contactService, draftService,
		&httphandler.HealthInfo{
			Archive:       paperless,
			ArchiveURL:    cfg.Paperless.URL,
			OllamaEnabled: cfg.Ollama.Enabled,
			OllamaURL:     cfg.Ollama.URL,
			OllamaModel:   cfg.Ollama.Model,
			OllamaProbe:   ollamaClient.IsAvailable,
		}, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting korrespondenz service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// newRenderer prefers the typst engine and falls back to the built-in pdf
// writer when no typst binary is installed.
func newRenderer(cfg *config.Config) (render.Renderer, error) {
	if _, err := os.Stat(cfg.Typst.Binary); err == nil {
		return render.NewTypstRenderer(cfg.Typst)
	}
	return render.NewFpdfRenderer(cfg.Typst)
}
