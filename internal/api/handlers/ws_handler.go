package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/veridict/voicelab/internal/services"
	"github.com/veridict/voicelab/internal/utils"
)

// WSHandler streams job lifecycle events to clients: one connection follows
// one analysis job from queued to done or failed.
type WSHandler struct {
	analysis services.AnalysisService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(analysis services.AnalysisService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		analysis: analysis,
		redis:    rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) JobWS(c *gin.Context) {
	const op = "WSHandler.JobWS"

	jobID := c.Param("job_id")
	if jobID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing job_id", nil))
		return
	}

	// The job must exist before we hold a connection open for it.
	current, err := h.analysis.JobStatus(c.Request.Context(), jobID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote a response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Send the current state first so clients that connect after completion
	// still get an answer.
	snapshot, _ := json.Marshal(map[string]interface{}{
		"type":      "status",
		"job_id":    current.JobID,
		"status":    current.Status,
		"operation": current.Operation,
	})
	if err := wc.writeText(snapshot); err != nil {
		return
	}

	pubsub := h.redis.Subscribe(ctx, services.JobStatusChannel(jobID))
	defer pubsub.Close()

	// reader: only to detect the client closing the socket
	go func() {
		defer cancel()
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	for {
		m, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		if werr := wc.writeText([]byte(m.Payload)); werr != nil {
			return
		}
	}
}
