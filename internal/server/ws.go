package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// eventFilter narrows the live feed by kind and account
type eventFilter struct {
	kind    models.EventKind
	account string
}

func (f eventFilter) match(ev *models.PoolEvent) bool {
	if f.kind != "" && ev.Kind != f.kind {
		return false
	}
	if f.account != "" && ev.Account != f.account {
		return false
	}
	return true
}

// EventsWS streams committed pool events as JSON text frames
// Optional query filters: kind, account
func (h *Handlers) EventsWS(c echo.Context) error {
	if h.Events == nil {
		return h.err(c, http.StatusServiceUnavailable, "live events are not configured", nil)
	}
	filter := eventFilter{
		kind:    models.EventKind(c.QueryParam("kind")),
		account: c.QueryParam("account"),
	}

	// cancelled by the read pump when the client disconnects
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := h.Events.SubscribeEvents(ctx)
	if err != nil {
		return h.err(c, http.StatusServiceUnavailable, "failed to subscribe", map[string]any{"err": err.Error()})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.Logger.WithError(err).Debug("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	h.Logger.WithField("remote", c.RealIP()).Debug("websocket client connected")
	go h.wsReadPump(conn, cancel)
	h.wsWritePump(ctx, conn, events, filter)
	return nil
}

// wsReadPump discards client frames and keeps the read deadline fresh. It
// cancels the subscription when the client goes away.
func (h *Handlers) wsReadPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(wsMaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.WithError(err).Debug("unexpected websocket close")
			}
			return
		}
	}
}

func (h *Handlers) wsWritePump(ctx context.Context, conn *websocket.Conn, events <-chan *models.PoolEvent, filter eventFilter) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return

		case ev, ok := <-events:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if !ok {
				// feed closed
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if !filter.match(ev) {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.Logger.WithError(err).WithFields(logrus.Fields{"event": ev.ID}).Debug("closing websocket, write failed")
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
