package handle

import (
	"context"
	"net/http"
	"time"

	"dine-order/internal/order/adapter/broadcast"
	"dine-order/internal/order/app/core"
)

// BrokerStatus reports whether the event broker is reachable. Nil when
// events are broadcast in-process only.
type BrokerStatus interface {
	IsAlive() bool
}

type HealthHandler struct {
	store  core.Store
	hub    *broadcast.Hub
	broker BrokerStatus
}

func NewHealthHandler(store core.Store, hub *broadcast.Hub, broker BrokerStatus) *HealthHandler {
	return &HealthHandler{
		store:  store,
		hub:    hub,
		broker: broker,
	}
}

func (hh *HealthHandler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		code := http.StatusOK
		status := "ok"

		storeStatus := "ok"
		if err := hh.store.IsAlive(ctx); err != nil {
			storeStatus = err.Error()
			code, status = http.StatusServiceUnavailable, "degraded"
		}

		subscribers, evicted := hh.hub.Stats()
		body := map[string]interface{}{
			"status": status,
			"store":  storeStatus,
			"live": map[string]interface{}{
				"subscribers": subscribers,
				"evicted":     evicted,
			},
		}

		if hh.broker != nil {
			brokerStatus := "ok"
			if !hh.broker.IsAlive() {
				brokerStatus = "reconnecting"
				code, status = http.StatusServiceUnavailable, "degraded"
				body["status"] = status
			}
			body["broker"] = brokerStatus
		}

		jsonResponse(w, code, body)
	}
}
