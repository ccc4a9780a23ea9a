package main

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/fauxi/consensus-backend/internal/api/canvas"
	genapi "github.com/fauxi/consensus-backend/internal/api/generate"
	"github.com/fauxi/consensus-backend/internal/api/submissions"
	"github.com/fauxi/consensus-backend/internal/config"
	"github.com/fauxi/consensus-backend/internal/engine"
	"github.com/fauxi/consensus-backend/internal/generate"
	"github.com/fauxi/consensus-backend/internal/logging"
	"github.com/fauxi/consensus-backend/internal/middleware"
	"github.com/fauxi/consensus-backend/internal/publish"
	"github.com/fauxi/consensus-backend/internal/session"
	"github.com/fauxi/consensus-backend/internal/storage/csvstore"
	"github.com/fauxi/consensus-backend/internal/storage/valkeystore"
	"github.com/fauxi/consensus-backend/internal/ws"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogConsole)

	submissionStore, err := csvstore.NewSubmissionStore(cfg.DataDir, log)
	if err != nil {
		log.Error().Err(err).Str("dir", cfg.DataDir).Msg("opening submission store")
		os.Exit(1)
	}
	voteStore := valkeystore.NewVoteStore(cfg.ValkeyAddr, cfg.DataDir, log)
	defer voteStore.Close()

	registry := session.NewRegistry()
	hub := ws.NewHub(registry, submissionStore, log)
	go hub.Run()

	engineClient := engine.NewClient(cfg.EngineURL, log)
	publisher, err := publish.New(publish.Config{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		UseSSL:    cfg.StorageUseSSL,
	}, log)
	if err != nil {
		log.Error().Err(err).Msg("configuring artifact publisher")
		os.Exit(1)
	}
	orchestrator := generate.New(engineClient, publisher, generate.Options{
		TempDir:         cfg.TempDir,
		EngineOutputDir: cfg.EngineOutputDir,
		PollAttempts:    cfg.PollAttempts,
		PollInterval:    cfg.PollInterval,
	}, log)

	router := mux.NewRouter()
	router.Use(middleware.CORS(cfg.AllowedOrigin))

	canvas.RegisterRoutes(router, &canvas.Handler{Hub: hub, Registry: registry, Log: log})
	genapi.RegisterRoutes(router, genapi.NewHandler(orchestrator, engineClient, log))
	submissions.RegisterRoutes(router, &submissions.Handler{Store: submissionStore, Votes: voteStore, Log: log})

	log.Info().Str("addr", cfg.ListenAddr).Msg("server started")
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
