package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/veridict/voicelab/config"
	"github.com/veridict/voicelab/internal/api/handlers"
	"github.com/veridict/voicelab/internal/api/routes"
	"github.com/veridict/voicelab/internal/cache"
	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/logger"
	"github.com/veridict/voicelab/internal/models"
	mongorepo "github.com/veridict/voicelab/internal/repositories/mongo"
	pgrepo "github.com/veridict/voicelab/internal/repositories/postgres"
	"github.com/veridict/voicelab/internal/services"
	"github.com/veridict/voicelab/internal/storage"
	"github.com/veridict/voicelab/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Datastores
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("postgres init: %v", err)
	}
	if err := config.PostgresDB.AutoMigrate(&models.Recording{}, &models.SpeakerProfile{}); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}
	if err := config.InitMongo(); err != nil {
		log.Fatalf("mongo init: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}
	if err := config.InitRedis(); err != nil {
		log.Fatalf("redis init: %v", err)
	}

	// Artifact store: GCS when a bucket is configured, local disk otherwise.
	var store storage.ArtifactStore
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcs, err := storage.NewGCSStore(ctx, bucket)
		if err != nil {
			log.Fatalf("gcs init: %v", err)
		}
		store = gcs
		log.WithField("bucket", bucket).Info("artifact store: gcs")
	} else {
		root := os.Getenv("ARTIFACT_DIR")
		if root == "" {
			root = "./artifacts"
		}
		local, err := storage.NewLocalStore(root)
		if err != nil {
			log.Fatalf("local store init: %v", err)
		}
		store = local
		log.WithField("root", root).Info("artifact store: local")
	}

	// Repositories
	recordingRepo := pgrepo.NewRecordingRepo(config.PostgresDB)
	profileRepo := pgrepo.NewSpeakerProfileRepo(config.PostgresDB)
	mongoDB := config.MongoDatabase()
	custodyRepo := mongorepo.NewCustodyRepo(mongoDB)
	resultRepo := mongorepo.NewResultRepo(mongoDB)

	// Engine
	extractor := engine.NewExtractor()
	diarizer := engine.NewDiarizer(extractor)
	emotion := engine.NewEmotionAnalyzer(extractor)
	stress := engine.NewStressDetector(extractor)
	comparator := engine.NewComparator()
	enhancer := engine.NewEnhancer()

	// Services
	featureCache := cache.NewFeatureCache(cache.NewRedisCache(config.RedisClient))
	recordingSvc := services.NewRecordingService(recordingRepo, custodyRepo, store)
	featureSvc := services.NewFeatureService(recordingSvc, extractor, featureCache)
	speakerSvc := services.NewSpeakerService(profileRepo, featureSvc)
	enhanceSvc := services.NewEnhancementService(featureSvc, enhancer, custodyRepo, store)
	analysisSvc := services.NewAnalysisService(
		featureSvc, speakerSvc, enhanceSvc,
		diarizer, emotion, stress, comparator,
		resultRepo, config.RedisClient,
	)

	// Background job consumers
	pool := &workers.AnalysisWorkerPool{
		Redis:    config.RedisClient,
		Results:  resultRepo,
		Analysis: analysisSvc,
		Logger:   log,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("worker pool: %v", err)
	}

	// HTTP
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	routes.RegisterRoutes(r, routes.Deps{
		Recording: handlers.NewRecordingHandler(recordingSvc, enhanceSvc),
		Speaker:   handlers.NewSpeakerHandler(speakerSvc),
		Analysis:  handlers.NewAnalysisHandler(analysisSvc),
		Enhance:   handlers.NewEnhanceHandler(enhanceSvc),
		WS:        handlers.NewWSHandler(analysisSvc, config.RedisClient),
		Logger:    log,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		log.WithField("port", port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("forced shutdown")
	}
}
