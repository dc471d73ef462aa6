package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/changefeed"
)

// Changes opens the change stream. The returned channel is closed when ctx is
// done or the server hangs up.
func (c *Client) Changes(ctx context.Context, tables []string) (<-chan changefeed.Event, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/api/v1/changes"
	q := url.Values{}
	if len(tables) > 0 {
		q.Set("tables", strings.Join(tables, ","))
	}
	if c.Tokens != nil {
		if tok := c.Tokens.Token(); tok != "" {
			q.Set("access_token", tok)
		}
	}
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 300 {
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("dial changes: %w", err)
	}

	var hello changefeed.Hello
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "no hello")
		return nil, fmt.Errorf("changes handshake: %w", err)
	}

	out := make(chan changefeed.Event)
	go func() {
		defer close(out)
		defer conn.CloseNow()
		for {
			var evt changefeed.Event
			if err := wsjson.Read(ctx, conn, &evt); err != nil {
				if ctx.Err() == nil {
					c.log.Debug("change stream ended", zap.Error(err))
				}
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
