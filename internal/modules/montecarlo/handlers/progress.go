package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/frontier/internal/modules/montecarlo"
)

// progressInterval is how often a running simulation's progress is pushed.
const progressInterval = 250 * time.Millisecond

// HandleProgress handles GET /api/simulations/{id}/progress (websocket).
// It sends a ProgressMessage every progressInterval while the run is in
// flight, a final message once it finishes, then closes normally.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	done, err := h.runs.Done(run.ID)
	if err != nil {
		http.Error(w, "Simulation not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced by the router
	})
	if err != nil {
		h.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to accept progress websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients never send; CloseRead handles control frames and cancels ctx on disconnect.
	ctx := conn.CloseRead(r.Context())

	h.log.Debug().Str("run_id", run.ID).Msg("Progress client connected")

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		if err := h.sendProgress(ctx, conn, run.ID); err != nil {
			h.log.Debug().Err(err).Str("run_id", run.ID).Msg("Progress client gone")
			return
		}

		select {
		case <-done:
			if err := h.sendProgress(ctx, conn, run.ID); err != nil {
				return
			}
			conn.Close(websocket.StatusNormalClosure, "simulation finished")
			return
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) sendProgress(ctx context.Context, conn *websocket.Conn, id string) error {
	run, err := h.runs.Get(id)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return wsjson.Write(writeCtx, conn, toProgressMessage(run))
}

func toProgressMessage(run montecarlo.Run) ProgressMessage {
	return ProgressMessage{
		ID:        run.ID,
		Status:    string(run.Status),
		Completed: run.Completed,
		Total:     run.Trials,
		Progress:  progressOf(run),
		Error:     run.Error,
	}
}
