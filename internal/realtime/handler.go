package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"medportal/pkg/logger"
)

const writeDeadline = 10 * time.Second

type slotsUpdate struct {
	DoctorID string   `json:"doctor_id"`
	Slots    []string `json:"slots"`
}

// SlotsHandler streams a doctor's slot set to websocket clients as it
// changes. Each connection holds one bridge subscription.
type SlotsHandler struct {
	bridge   *Bridge
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewSlotsHandler(bridge *Bridge, log *logger.Logger) *SlotsHandler {
	return &SlotsHandler{
		bridge: bridge,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *SlotsHandler) Stream(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := ps.ByName("doctorId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "doctor_id", doctorID, "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan []string, 16)
	sub, err := h.bridge.Subscribe(r.Context(), doctorID, func(slots []string) {
		select {
		case updates <- slots:
		default:
			// Slow consumer: drop the stale update, a newer one follows.
		}
	})
	if err != nil {
		h.log.Error("failed to subscribe to slot changes", "doctor_id", doctorID, "error", err)
		return
	}
	defer sub.Unsubscribe()

	// Reader goroutine notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case slots := <-updates:
			if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				return
			}
			if err := conn.WriteJSON(slotsUpdate{DoctorID: doctorID, Slots: slots}); err != nil {
				h.log.Warn("failed to push slot update", "doctor_id", doctorID, "error", err)
				return
			}
		}
	}
}

func (h *SlotsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/ws/slots/:doctorId", h.Stream)
}
