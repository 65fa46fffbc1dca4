package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veridict/voicelab/internal/engine"
	"github.com/veridict/voicelab/internal/services"
	"github.com/veridict/voicelab/internal/utils"
)

type EnhanceHandler struct {
	svc services.EnhancementService
}

func NewEnhanceHandler(svc services.EnhancementService) *EnhanceHandler {
	return &EnhanceHandler{svc: svc}
}

func (h *EnhanceHandler) Quality(c *gin.Context) {
	res, err := h.svc.AssessQuality(c.Request.Context(), c.Param("audio_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EnhanceHandler) Noise(c *gin.Context) {
	res, err := h.svc.AnalyzeNoise(c.Request.Context(), c.Param("audio_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type enhanceRequest struct {
	AudioID        string `json:"audio_id"`
	Aggressiveness string `json:"aggressiveness"`

	// Filters, when set, names the exact chain to apply in order instead of
	// deriving one from the noise and quality assessments.
	Filters []string `json:"filters"`
}

func (h *EnhanceHandler) Enhance(c *gin.Context) {
	const op = "EnhanceHandler.Enhance"

	var req enhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AudioID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio_id is required", err))
		return
	}

	level := engine.Aggressiveness(req.Aggressiveness)
	switch level {
	case "":
		level = engine.AggressivenessModerate
	case engine.AggressivenessMinimal, engine.AggressivenessModerate, engine.AggressivenessAggressive:
	default:
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "aggressiveness must be minimal, moderate or aggressive", nil))
		return
	}

	res, err := h.svc.Enhance(c.Request.Context(), req.AudioID, level, req.Filters)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// VerifyEnhanced re-checks a stored enhanced artifact against the custody log.
func (h *EnhanceHandler) VerifyEnhanced(c *gin.Context) {
	rec, err := h.svc.VerifyEnhanced(c.Request.Context(), c.Param("audio_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enhanced_id": rec.EnhancedID,
		"verified":    true,
		"custody":     rec,
	})
}
