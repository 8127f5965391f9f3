package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/ecohuntapp/ecohunt-server/internal/eco"
	"github.com/ecohuntapp/ecohunt-server/internal/service"
	"github.com/ecohuntapp/ecohunt-server/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type LeaderboardHandler struct {
	service  service.LeaderboardService
	feed     *service.ChangeFeed
	upgrader websocket.Upgrader
}

func NewLeaderboardHandler(svc service.LeaderboardService, feed *service.ChangeFeed) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: svc,
		feed:    feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

// Get serves a one-shot leaderboard snapshot: GET /leaderboard?period=weekly
func (h *LeaderboardHandler) Get(c *gin.Context) {
	period, err := eco.ParsePeriod(c.DefaultQuery("period", string(eco.PeriodWeekly)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.service.Compute(c.Request.Context(), period)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// wsClientMessage is what subscribers send over the socket.
type wsClientMessage struct {
	Type   string `json:"type"`   // "set_period" or "refetch"
	Period string `json:"period"` // for set_period
}

type wsServerMessage struct {
	Type string                       `json:"type"` // "snapshot" or "error"
	Data *service.LeaderboardSnapshot `json:"data,omitempty"`
	Err  string                       `json:"error,omitempty"`
}

// HandleWebSocket streams live leaderboard snapshots. Each connection owns
// a refresher: data changes and period switches trigger recomputes, and only
// the freshest completed run is ever delivered.
func (h *LeaderboardHandler) HandleWebSocket(c *gin.Context) {
	period, err := eco.ParsePeriod(c.DefaultQuery("period", string(eco.PeriodWeekly)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	refresher := service.NewRefresher(h.service, period)
	defer refresher.Close()

	go refresher.Listen(ctx, h.feed)
	refresher.Refetch(ctx)

	// Reader: period switches and manual refetches from the client.
	// All writes stay on this goroutine; the reader reports bad input
	// through errCh instead of writing to the socket itself.
	clientClosed := make(chan struct{})
	errCh := make(chan string, 4)
	go func() {
		defer close(clientClosed)
		for {
			var msg wsClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "set_period":
				p, err := eco.ParsePeriod(msg.Period)
				if err != nil {
					select {
					case errCh <- err.Error():
					default:
					}
					continue
				}
				refresher.SetPeriod(ctx, p)
			case "refetch":
				refresher.Refetch(ctx)
			}
		}
	}()

	for {
		select {
		case snapshot, ok := <-refresher.Updates():
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsServerMessage{Type: "snapshot", Data: snapshot}); err != nil {
				log.Printf("Failed to write snapshot to websocket: %v", err)
				return
			}
		case msg := <-errCh:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(wsServerMessage{Type: "error", Err: msg}); err != nil {
				return
			}
			conn.SetWriteDeadline(time.Time{})
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
