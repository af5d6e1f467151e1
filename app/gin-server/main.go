package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/davigonia/mr-learning/config"
	"github.com/davigonia/mr-learning/internal/api/handlers"
	"github.com/davigonia/mr-learning/internal/api/middleware"
	"github.com/davigonia/mr-learning/internal/api/routes"
	"github.com/davigonia/mr-learning/internal/cache"
	"github.com/davigonia/mr-learning/internal/gate"
	"github.com/davigonia/mr-learning/internal/logger"
	"github.com/davigonia/mr-learning/internal/models"
	"github.com/davigonia/mr-learning/internal/providers/answer"
	"github.com/davigonia/mr-learning/internal/providers/stt"
	mongorepo "github.com/davigonia/mr-learning/internal/repositories/mongo"
	pgrepo "github.com/davigonia/mr-learning/internal/repositories/postgres"
	"github.com/davigonia/mr-learning/internal/services"
	"github.com/davigonia/mr-learning/internal/storage"
	"github.com/davigonia/mr-learning/internal/workers"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	l.Info("MongoDB connected")

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	l.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	l.Info("Redis connected")

	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("Mongo index error: %v", err)
	}
	if err := config.PostgresDB.AutoMigrate(&models.HistoryEntry{}, &models.FilterPolicy{}); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}

	mongoDB := config.MongoDatabase()

	// Repositories
	policyRepo := pgrepo.NewPolicyRepo(config.PostgresDB)
	historyRepo := pgrepo.NewHistoryRepo(config.PostgresDB)
	sessionRepo := mongorepo.NewSessionRepo(mongoDB)
	blockRepo := mongorepo.NewBlockLogRepo(mongoDB)
	bufferRepo := mongorepo.NewBufferRepo(mongoDB)

	// Services
	redisCache := cache.NewRedisCache(config.RedisClient)
	parentalSvc := services.NewParentalService(policyRepo, redisCache)
	historySvc := services.NewHistoryService(historyRepo)
	blockSvc := services.NewBlockLogService(blockRepo)
	sessionSvc := services.NewSessionService(sessionRepo)
	bufferSvc := services.NewBufferService(bufferRepo, 24*time.Hour)

	// Answer provider: x.ai-compatible chat API by default, Vertex when
	// ANSWER_PROVIDER=vertex.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var provider answer.Provider
	if os.Getenv("ANSWER_PROVIDER") == "vertex" {
		vp, err := answer.NewVertexGemini(ctx, os.Getenv("GCP_PROJECT_ID"), os.Getenv("GCP_LOCATION"), os.Getenv("VERTEX_MODEL"))
		if err != nil {
			log.Fatalf("Vertex provider init error: %v", err)
		}
		provider = vp
	} else {
		provider = answer.NewChatClient(os.Getenv("ANSWER_API_URL"), os.Getenv("ANSWER_API_KEY"), os.Getenv("ANSWER_MODEL"))
	}
	defer provider.Close()

	g := gate.New()

	// Optional audio archive for parental capture review
	var archive *storage.GCSArchive
	if bucket := os.Getenv("AUDIO_ARCHIVE_BUCKET"); bucket != "" {
		arc, err := storage.NewGCSArchive(ctx, bucket)
		if err != nil {
			l.WithError(err).Warn("audio archive unavailable")
		} else {
			defer arc.Close()
			archive = arc
		}
	}

	// Server-side transcription for clients without on-device recognition
	sttProvider, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		l.WithError(err).Warn("Google Speech unavailable; server transcription disabled")
	} else {
		defer sttProvider.Close()

		pool := &workers.TranscribeWorkerPool{
			Redis:   config.RedisClient,
			Buffers: bufferSvc,
			STT:     sttProvider,
			Logger:  l,
		}
		if archive != nil {
			pool.Archive = archive
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("Worker pool error: %v", err)
		}
		l.Info("transcription workers started")
	}

	// Handlers
	askHandler := &handlers.AskHandler{
		Gate:     g,
		Provider: provider,
		Parental: parentalSvc,
		History:  historySvc,
		Blocks:   blockSvc,
		Logger:   l,
	}
	parentalHandler := &handlers.ParentalHandler{
		Parental: parentalSvc,
		History:  historySvc,
		Blocks:   blockSvc,
		Sessions: sessionSvc,
		Buffers:  bufferSvc,
	}
	if archive != nil {
		parentalHandler.Signer = archive
	}
	historyHandler := &handlers.HistoryHandler{History: historySvc}
	wsHandler := &handlers.SessionWSHandler{
		Sessions: sessionSvc,
		Buffers:  bufferSvc,
		Parental: parentalSvc,
		History:  historySvc,
		Blocks:   blockSvc,
		Gate:     g,
		Provider: provider,
		Redis:    config.RedisClient,
		Logger:   l,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Ask:       askHandler,
		Parental:  parentalHandler,
		History:   historyHandler,
		SessionWS: wsHandler,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
