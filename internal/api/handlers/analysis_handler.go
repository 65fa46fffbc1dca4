package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veridict/voicelab/internal/services"
	"github.com/veridict/voicelab/internal/utils"
)

type AnalysisHandler struct {
	svc services.AnalysisService
}

func NewAnalysisHandler(svc services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

type analysisRequest struct {
	AudioID         string `json:"audio_id"`
	AudioIDB        string `json:"audio_id_b"`
	CaseID          string `json:"case_id"`
	BaselineAudioID string `json:"baseline_audio_id"`
}

func bindAnalysis(c *gin.Context, op string) (analysisRequest, bool) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AudioID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio_id is required", err))
		return req, false
	}
	return req, true
}

func (h *AnalysisHandler) Diarize(c *gin.Context) {
	req, ok := bindAnalysis(c, "AnalysisHandler.Diarize")
	if !ok {
		return
	}
	res, err := h.svc.Diarize(c.Request.Context(), req.AudioID, req.CaseID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnalysisHandler) Emotion(c *gin.Context) {
	req, ok := bindAnalysis(c, "AnalysisHandler.Emotion")
	if !ok {
		return
	}
	res, err := h.svc.AnalyzeEmotion(c.Request.Context(), req.AudioID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnalysisHandler) Stress(c *gin.Context) {
	req, ok := bindAnalysis(c, "AnalysisHandler.Stress")
	if !ok {
		return
	}
	res, err := h.svc.AnalyzeStress(c.Request.Context(), req.AudioID, req.BaselineAudioID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnalysisHandler) Compare(c *gin.Context) {
	const op = "AnalysisHandler.Compare"

	req, ok := bindAnalysis(c, op)
	if !ok {
		return
	}
	if req.AudioIDB == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio_id_b is required", nil))
		return
	}
	res, err := h.svc.Compare(c.Request.Context(), req.AudioID, req.AudioIDB)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnalysisHandler) Report(c *gin.Context) {
	const op = "AnalysisHandler.Report"

	req, ok := bindAnalysis(c, op)
	if !ok {
		return
	}
	if req.AudioIDB == "" || req.CaseID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio_id_b and case_id are required", nil))
		return
	}
	res, err := h.svc.Report(c.Request.Context(), req.CaseID, req.AudioID, req.AudioIDB)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type submitJobRequest struct {
	Operation string            `json:"operation"`
	AudioID   string            `json:"audio_id"`
	Params    map[string]string `json:"params"`
}

func (h *AnalysisHandler) SubmitJob(c *gin.Context) {
	const op = "AnalysisHandler.SubmitJob"

	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	jobID, err := h.svc.SubmitJob(c.Request.Context(), req.Operation, req.AudioID, req.Params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "queued"})
}

func (h *AnalysisHandler) JobStatus(c *gin.Context) {
	res, err := h.svc.JobStatus(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
