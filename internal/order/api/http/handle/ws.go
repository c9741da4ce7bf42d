package handle

import (
	"fmt"
	"net/http"
	"time"

	"dine-order/internal/order/adapter/broadcast"
	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/xpkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type LiveHandler struct {
	hub   *broadcast.Hub
	mylog logger.Logger
}

func NewLiveHandler(hub *broadcast.Hub, mylog logger.Logger) *LiveHandler {
	return &LiveHandler{
		hub:   hub,
		mylog: mylog,
	}
}

// Subscribe upgrades to a websocket streaming order events. With ?table=N the
// client follows one table; without it the client follows the whole floor,
// which is reserved for staff.
func (lh *LiveHandler) Subscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, err := intParam("table", r.URL.Query().Get("table"))
		if err != nil {
			domainError(w, err)
			return
		}

		id := identity(r)
		if table == broadcast.GlobalScope {
			if id.Role != core.RoleStaff && id.Role != core.RoleAdmin {
				domainError(w, fmt.Errorf("%w: following every table requires staff role", core.ErrForbidden))
				return
			}
		} else if err := dto.ValidateTableNumber(table); err != nil {
			domainError(w, err)
			return
		}

		// subscribe first so nothing published after the handshake is missed
		var sub *broadcast.Subscription
		if table == broadcast.GlobalScope {
			sub = lh.hub.SubscribeAll()
		} else {
			sub = lh.hub.Subscribe(table)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			sub.Close()
			// Upgrade has already written the HTTP error.
			lh.mylog.Action("ws_upgrade_failed").Debug("Websocket upgrade failed", "reason", err.Error())
			return
		}

		mylog := lh.mylog.With("scope", table, "subject", id.ChangedBy())
		mylog.Action("ws_subscribed").Info("Live subscriber connected")

		go lh.writePump(conn, sub, mylog)
		lh.readPump(conn, sub, mylog)
	}
}

// readPump only services control frames; clients never send data.
func (lh *LiveHandler) readPump(conn *websocket.Conn, sub *broadcast.Subscription, mylog logger.Logger) {
	defer func() {
		sub.Close()
		conn.Close()
		mylog.Action("ws_unsubscribed").Info("Live subscriber disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				mylog.Action("ws_read_failed").Debug("Websocket read failed", "reason", err.Error())
			}
			return
		}
	}
}

func (lh *LiveHandler) writePump(conn *websocket.Conn, sub *broadcast.Subscription, mylog logger.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// evicted or closed: the client must re-fetch and reconnect
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscription closed"))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				mylog.Action("ws_write_failed").Debug("Websocket write failed", "reason", err.Error())
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
