package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"luckydraw/internal/services"
)

type drawRequest struct {
	Tier  string `json:"tier" binding:"required"`
	Slots int    `json:"slots" binding:"min=0"`
}

type drawResponse struct {
	ID        string    `json:"id"`
	Tier      string    `json:"tier"`
	Slots     int       `json:"slots"`
	StartedAt time.Time `json:"startedAt"`
}

func newDrawResponse(d *services.Draw) drawResponse {
	return drawResponse{ID: d.ID.String(), Tier: d.Tier, Slots: d.Slots, StartedAt: d.StartedAt}
}

// DrawStatus reports the engine phase and the draw in flight, if any.
func (h *HTTPHandler) DrawStatus(c *gin.Context) {
	state, d := h.service.DrawState(tenantOf(c))
	body := gin.H{"state": state.String()}
	if d != nil {
		body["draw"] = newDrawResponse(d)
	}
	c.JSON(http.StatusOK, body)
}

// StartDraw starts the reveal for a tier. The result arrives on the event
// stream; the response only acknowledges the request.
func (h *HTTPHandler) StartDraw(c *gin.Context) {
	var req drawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.service.StartDraw(tenantOf(c), req.Tier, services.DrawOptions{Slots: req.Slots})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, newDrawResponse(d))
}

// StopDraw ends the reveal early and settles the winners.
func (h *HTTPHandler) StopDraw(c *gin.Context) {
	if !h.service.StopDraw(tenantOf(c)) {
		c.JSON(http.StatusConflict, gin.H{"error": "no draw is revealing"})
		return
	}
	c.Status(http.StatusAccepted)
}

// CancelDraw aborts the reveal without recording anything.
func (h *HTTPHandler) CancelDraw(c *gin.Context) {
	if !h.service.CancelDraw(tenantOf(c)) {
		c.JSON(http.StatusConflict, gin.H{"error": "no draw is revealing"})
		return
	}
	c.Status(http.StatusAccepted)
}

// DrawEvents streams engine events as server-sent events. The first event
// carries the current state so clients can tell the stream is live.
func (h *HTTPHandler) DrawEvents(c *gin.Context) {
	tenantID := tenantOf(c)
	events, unsubscribe := h.service.Subscribe(tenantID)
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	state, _ := h.service.DrawState(tenantID)
	c.SSEvent("state", gin.H{"state": state.String()})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
