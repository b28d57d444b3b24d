package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"pokequest/internal/catch"
)

const eventWriteTimeout = 5 * time.Second

// catchEvents streams catch snapshots to a websocket client, starting with the
// current one. The stream ends when the client leaves or the session ends.
func (h *Handler) catchEvents(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	events, unsubscribe, err := h.svc.Subscribe(user)
	if err != nil {
		h.serviceError(w, "catchEvents", user, err)
		return
	}
	defer unsubscribe()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.String("user_id", user), zap.Error(err))
		return
	}
	defer ws.CloseNow()

	// Nothing is expected from the client; CloseRead handles control frames
	// and cancels ctx once the peer goes away.
	ctx := ws.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-events:
			if !ok {
				ws.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
			if err := writeSnapshot(ctx, ws, snap); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.logger.Debug("websocket write failed", zap.String("user_id", user), zap.Error(err))
				}
				return
			}
		}
	}
}

func writeSnapshot(ctx context.Context, ws *websocket.Conn, snap catch.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
