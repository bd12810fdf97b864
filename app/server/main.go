package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/babelroom/babelroom/config"
	"github.com/babelroom/babelroom/internal/api/handlers"
	"github.com/babelroom/babelroom/internal/api/middleware"
	"github.com/babelroom/babelroom/internal/api/routes"
	"github.com/babelroom/babelroom/internal/cache"
	"github.com/babelroom/babelroom/internal/fanout"
	"github.com/babelroom/babelroom/internal/logger"
	"github.com/babelroom/babelroom/internal/providers"
	"github.com/babelroom/babelroom/internal/providers/mt"
	"github.com/babelroom/babelroom/internal/providers/stt"
	"github.com/babelroom/babelroom/internal/providers/tts"
	"github.com/babelroom/babelroom/internal/recognition"
	"github.com/babelroom/babelroom/internal/registry"
	"github.com/babelroom/babelroom/internal/repositories/redisrepo"
	"github.com/babelroom/babelroom/internal/services"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	cfg := config.LoadApp()
	ctx := context.Background()

	rdb, err := config.InitRedis()
	if err != nil {
		log.WithError(err).Fatal("redis init failed")
	}
	log.Info("redis connected")

	// Engine providers: prefer the configured cloud engines, fall back to the
	// in-process stubs so the service still runs end to end locally.
	var gopts []option.ClientOption
	if f := os.Getenv("GOOGLE_CREDENTIALS_FILE"); f != "" {
		gopts = append(gopts, option.WithCredentialsFile(f))
	}

	sttCandidates := []stt.Provider{}
	if g, err := stt.NewGoogleSpeech(ctx, gopts...); err == nil {
		sttCandidates = append(sttCandidates, g)
	} else {
		log.WithError(err).Warn("google speech unavailable")
	}
	sttCandidates = append(sttCandidates, stt.NewStub())
	sttProvider, err := providers.Resolve(ctx, os.Getenv("STT_PROVIDER"), sttCandidates...)
	if err != nil {
		log.WithError(err).Fatal("no recognition provider")
	}

	mtCandidates := []mt.Provider{}
	if g, err := mt.NewGoogleTranslate(ctx, gopts...); err == nil {
		mtCandidates = append(mtCandidates, g)
	} else {
		log.WithError(err).Warn("google translate unavailable")
	}
	mtCandidates = append(mtCandidates, mt.NewStub())
	mtProvider, err := providers.Resolve(ctx, os.Getenv("MT_PROVIDER"), mtCandidates...)
	if err != nil {
		log.WithError(err).Fatal("no translation provider")
	}

	ttsCandidates := []tts.Provider{}
	if g, err := tts.NewGoogleTTS(ctx, gopts...); err == nil {
		ttsCandidates = append(ttsCandidates, g)
	} else {
		log.WithError(err).Warn("google tts unavailable")
	}
	ttsCandidates = append(ttsCandidates, tts.NewStub())
	ttsProvider, err := providers.Resolve(ctx, os.Getenv("TTS_PROVIDER"), ttsCandidates...)
	if err != nil {
		log.WithError(err).Fatal("no synthesis provider")
	}

	log.WithFields(logrus.Fields{
		"stt": sttProvider.Name(),
		"mt":  mtProvider.Name(),
		"tts": ttsProvider.Name(),
	}).Info("providers resolved")

	rooms := services.NewRoomService(redisrepo.NewRoomRepository(rdb), cfg.RoomTTL)
	reg := registry.New(cfg.MaxRoomParticipants, log)
	rec := recognition.NewManager(sttProvider, recognition.Config{
		RestartBudget: cfg.RestartBudget,
		RestartWindow: cfg.RestartWindow,
	}, log)
	fo := fanout.NewEngine(mtProvider, reg, cfg.FallbackLanguage, log)
	cachedTTS := tts.NewCached(ttsProvider, cache.NewRedisCache(rdb), 24*time.Hour)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Room:  handlers.NewRoomHandler(rooms, reg),
		Synth: handlers.NewSynthHandler(cachedTTS),
		WS:    handlers.NewWSHandler(rooms, reg, rec, fo, log),
	})

	log.WithField("port", cfg.Port).Info("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
