package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veridict/voicelab/internal/models"
	"github.com/veridict/voicelab/internal/services"
	"github.com/veridict/voicelab/internal/utils"
)

type SpeakerHandler struct {
	svc services.SpeakerService
}

func NewSpeakerHandler(svc services.SpeakerService) *SpeakerHandler {
	return &SpeakerHandler{svc: svc}
}

func (h *SpeakerHandler) Enroll(c *gin.Context) {
	const op = "SpeakerHandler.Enroll"

	var req services.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	profile, warnings, err := h.svc.Enroll(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"profile":  profile,
		"warnings": warnings,
	})
}

type identifyRequest struct {
	AudioID string `json:"audio_id"`
	CaseID  string `json:"case_id"`
}

func (h *SpeakerHandler) Identify(c *gin.Context) {
	const op = "SpeakerHandler.Identify"

	var req identifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AudioID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio_id is required", err))
		return
	}

	result, err := h.svc.Identify(c.Request.Context(), req.AudioID, req.CaseID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type verifyRequest struct {
	AudioID   string `json:"audio_id"`
	ProfileID string `json:"profile_id"`
}

func (h *SpeakerHandler) Verify(c *gin.Context) {
	const op = "SpeakerHandler.Verify"

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AudioID == "" || req.ProfileID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio_id and profile_id are required", err))
		return
	}

	result, err := h.svc.Verify(c.Request.Context(), req.AudioID, req.ProfileID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SpeakerHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), c.Query("case_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *SpeakerHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("profile_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *SpeakerHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("profile_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SpeakerHandler) Export(c *gin.Context) {
	exp, err := h.svc.Export(c.Request.Context(), c.Param("profile_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

func (h *SpeakerHandler) Import(c *gin.Context) {
	const op = "SpeakerHandler.Import"

	var exp models.ProfileExport
	if err := c.ShouldBindJSON(&exp); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	profile, err := h.svc.Import(c.Request.Context(), &exp)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
