package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veridict/voicelab/internal/services"
	"github.com/veridict/voicelab/internal/utils"
)

// maxUploadBytes bounds evidence uploads. Long-form interview audio fits
// comfortably; anything larger should arrive through bulk transfer.
const maxUploadBytes = 200 << 20

type RecordingHandler struct {
	recordings services.RecordingService
	enhance    services.EnhancementService
}

func NewRecordingHandler(recordings services.RecordingService, enhance services.EnhancementService) *RecordingHandler {
	return &RecordingHandler{recordings: recordings, enhance: enhance}
}

func (h *RecordingHandler) Upload(c *gin.Context) {
	const op = "RecordingHandler.Upload"

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return
	}
	if fh.Size <= 0 || fh.Size > maxUploadBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "file empty or too large (max 200MB)", nil))
		return
	}
	caseID := c.PostForm("case_id")

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read upload", err))
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	rec, err := h.recordings.Ingest(c.Request.Context(), caseID, fh.Filename, mimeType, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *RecordingHandler) Get(c *gin.Context) {
	rec, err := h.recordings.Get(c.Request.Context(), c.Param("audio_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RecordingHandler) ListByCase(c *gin.Context) {
	out, err := h.recordings.ListByCase(c.Request.Context(), c.Param("case_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// VerifyIntegrity re-hashes stored evidence against the intake hash. A
// mismatch returns the integrity error, never a silent success.
func (h *RecordingHandler) VerifyIntegrity(c *gin.Context) {
	audioID := c.Param("audio_id")
	if err := h.recordings.VerifyIntegrity(c.Request.Context(), audioID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio_id": audioID, "verified": true})
}

func (h *RecordingHandler) CustodyLog(c *gin.Context) {
	out, err := h.enhance.CustodyLog(c.Request.Context(), c.Param("audio_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
