package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/veridict/voicelab/internal/api/handlers"
	"github.com/veridict/voicelab/internal/api/middleware"
)

type Deps struct {
	Recording *handlers.RecordingHandler
	Speaker   *handlers.SpeakerHandler
	Analysis  *handlers.AnalysisHandler
	Enhance   *handlers.EnhanceHandler
	WS        *handlers.WSHandler
	Logger    *logrus.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestLogger(d.Logger))

	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Evidence intake and custody
	r.POST("/recordings", d.Recording.Upload)
	r.GET("/recordings/:audio_id", d.Recording.Get)
	r.GET("/recordings/:audio_id/integrity", d.Recording.VerifyIntegrity)
	r.GET("/recordings/:audio_id/custody", d.Recording.CustodyLog)
	r.GET("/cases/:case_id/recordings", d.Recording.ListByCase)

	// Speaker registry
	r.POST("/speakers/enroll", d.Speaker.Enroll)
	r.POST("/speakers/identify", d.Speaker.Identify)
	r.POST("/speakers/verify", d.Speaker.Verify)
	r.POST("/speakers/import", d.Speaker.Import)
	r.GET("/speakers", d.Speaker.List)
	r.GET("/speakers/:profile_id", d.Speaker.Get)
	r.DELETE("/speakers/:profile_id", d.Speaker.Delete)
	r.GET("/speakers/:profile_id/export", d.Speaker.Export)

	// Synchronous analyses
	r.POST("/analysis/diarize", d.Analysis.Diarize)
	r.POST("/analysis/emotion", d.Analysis.Emotion)
	r.POST("/analysis/stress", d.Analysis.Stress)
	r.POST("/analysis/compare", d.Analysis.Compare)
	r.POST("/analysis/report", d.Analysis.Report)

	// Queued jobs
	r.POST("/analysis/jobs", d.Analysis.SubmitJob)
	r.GET("/analysis/jobs/:job_id", d.Analysis.JobStatus)

	// Quality and enhancement
	r.GET("/audio/:audio_id/quality", d.Enhance.Quality)
	r.GET("/audio/:audio_id/noise", d.Enhance.Noise)
	r.POST("/enhance", d.Enhance.Enhance)
	r.GET("/enhanced/:audio_id/integrity", d.Enhance.VerifyEnhanced)

	// WebSocket
	r.GET("/ws/jobs/:job_id", d.WS.JobWS)
}
