package changefeed

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Hello is the first frame written on a stream so clients know the subscription is live.
type Hello struct {
	Type string `json:"type"`
}

// StreamOptions configures a WebSocket change stream.
type StreamOptions struct {
	OriginPatterns []string
	Buffer         int
	WriteTimeout   time.Duration
}

// Stream upgrades the request and forwards events visible to the subscriber until either side hangs up.
// tables restricts the stream; empty means every table.
func Stream(w http.ResponseWriter, r *http.Request, hub *Hub, subscriber uuid.UUID, admin bool, tables []string, opts StreamOptions, log *zap.Logger) {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
	if err != nil {
		log.Debug("ws accept", zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := hub.Subscribe(opts.Buffer)
	defer hub.Unsubscribe(sub)

	want := map[string]struct{}{}
	for _, t := range tables {
		want[t] = struct{}{}
	}

	_ = wsjson.Write(ctx, conn, Hello{Type: "ready"})

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub:
			if !ok {
				log.Info("ws subscriber lagging, closing", zap.Stringer("subscriber", subscriber))
				_ = conn.Close(websocket.StatusTryAgainLater, "lagging")
				return
			}
			if len(want) > 0 {
				if _, ok := want[evt.Table]; !ok {
					continue
				}
			}
			evt, ok = evt.For(subscriber, admin)
			if !ok {
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, opts.WriteTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				log.Debug("ws write", zap.Error(err))
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}
