package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dine-order/internal/order/adapter/broadcast"
	"dine-order/internal/order/adapter/db/memory"
	"dine-order/internal/order/api/http/handle"
	"dine-order/internal/order/app/core"
	"dine-order/internal/order/app/services"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testAPI struct {
	srv     *httptest.Server
	catalog *services.Catalog
}

func newTestAPI(t *testing.T, allowAnonymous bool) *testAPI {
	t.Helper()
	mylog := logger.Discard()

	store := memory.New()
	hub := broadcast.NewHub(16, mylog)
	catalog := services.NewCatalog(store, time.Minute, mylog)
	orderService := services.NewOrderService(store, catalog, hub, mylog)
	statsService := services.NewStatsService(store.Payments(), time.UTC, mylog)

	mux := http.NewServeMux()
	Routes(mux, Handlers{
		Auth:    handle.NewAuth(testSecret, allowAnonymous, mylog),
		Order:   handle.NewOrderHandler(orderService, mylog),
		Payment: handle.NewPaymentHandler(orderService, statsService, mylog),
		Stats:   handle.NewStatsHandler(statsService, mylog),
		Catalog: handle.NewCatalogHandler(catalog, mylog),
		Live:    handle.NewLiveHandler(hub, mylog),
		Health:  handle.NewHealthHandler(store, hub, nil),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, catalog: catalog}
}

func token(t *testing.T, role core.Role) string {
	t.Helper()
	tok, err := handle.GenerateToken("user-"+string(role), role, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, tok string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		var raw json.RawMessage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		if len(raw) > 0 && raw[0] == '{' {
			require.NoError(t, json.Unmarshal(raw, &out))
		} else {
			out = map[string]any{"items": raw}
		}
	}
	return resp.StatusCode, out
}

func (a *testAPI) food(t *testing.T, price int64) string {
	t.Helper()
	food, err := a.catalog.CreateFood(context.Background(), dto.FoodRequest{Name: "dish", Price: price})
	require.NoError(t, err)
	return food.ID
}

func (a *testAPI) placeOrder(t *testing.T, table int, foodID string, qty int) string {
	t.Helper()
	code, body := a.do(t, http.MethodPost, "/orders", "", dto.PlaceOrderRequest{
		TableNumber: table,
		Items:       []dto.Item{{FoodID: foodID, Quantity: qty}},
	})
	require.Equal(t, http.StatusCreated, code, body)
	return body["_id"].(string)
}

func TestPlaceOrderAnonymously(t *testing.T) {
	api := newTestAPI(t, true)
	a := api.food(t, 10000)

	code, body := api.do(t, http.MethodPost, "/orders", "", map[string]any{
		"tableNumber": 5,
		"items":       []map[string]any{{"food": a, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, float64(20000), body["total"])
	assert.Equal(t, "pending", body["status"])
}

func TestValidationErrorBody(t *testing.T) {
	api := newTestAPI(t, true)

	code, body := api.do(t, http.MethodPost, "/orders", "", map[string]any{"tableNumber": 5, "items": []any{}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(core.KindEmptyOrder), body["kind"])

	code, body = api.do(t, http.MethodPost, "/orders", "", "not an object")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, string(core.KindValidation), body["kind"])
}

func TestRolesGuardStaffRoutes(t *testing.T) {
	api := newTestAPI(t, true)
	a := api.food(t, 10000)
	id := api.placeOrder(t, 1, a, 1)
	path := "/orders/" + id + "/status"
	req := map[string]any{"status": "preparing"}

	code, body := api.do(t, http.MethodPatch, path, "", req)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, string(core.KindForbidden), body["kind"])

	code, _ = api.do(t, http.MethodPatch, path, token(t, core.RoleCustomer), req)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(t, http.MethodPatch, path, "garbage", req)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = api.do(t, http.MethodPatch, path, token(t, core.RoleStaff), req)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "preparing", body["status"])

	code, _ = api.do(t, http.MethodGet, "/stats", token(t, core.RoleStaff), nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = api.do(t, http.MethodGet, "/stats", token(t, core.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAnonymousDisabled(t *testing.T) {
	api := newTestAPI(t, false)

	code, body := api.do(t, http.MethodGet, "/foods", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, string(core.KindUnauthorized), body["kind"])

	code, _ = api.do(t, http.MethodGet, "/foods", token(t, core.RoleCustomer), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestInvalidTransitionBody(t *testing.T) {
	api := newTestAPI(t, true)
	staff := token(t, core.RoleStaff)
	a := api.food(t, 10000)
	id := api.placeOrder(t, 1, a, 1)

	code, _ := api.do(t, http.MethodPatch, "/orders/status", staff, map[string]any{"orderId": id, "status": "paid"})
	require.Equal(t, http.StatusOK, code)

	code, body := api.do(t, http.MethodPatch, "/orders/"+id+"/status", staff, map[string]any{"status": "preparing"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(core.KindInvalidTransition), body["kind"])
	assert.Equal(t, "paid", body["currentStatus"])
	assert.Equal(t, "preparing", body["requestedStatus"])

	code, body = api.do(t, http.MethodGet, "/orders/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, string(core.KindNotFound), body["kind"])
}

func TestSettleFlow(t *testing.T) {
	api := newTestAPI(t, true)
	staff := token(t, core.RoleStaff)
	a := api.food(t, 10000)
	api.placeOrder(t, 5, a, 2)
	api.placeOrder(t, 5, a, 3)

	code, body := api.do(t, http.MethodPost, "/settle", staff, map[string]any{"tableNumber": 5, "method": "card"})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, float64(50000), body["totalAmount"])
	paymentID := body["_id"].(string)

	code, body = api.do(t, http.MethodPost, "/settle", staff, map[string]any{"tableNumber": 5})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(core.KindNothingToSettle), body["kind"])

	code, body = api.do(t, http.MethodGet, "/payments/"+paymentID, staff, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "card", body["method"])

	today := time.Now().UTC().Format("2006-01-02")
	code, body = api.do(t, http.MethodGet, "/stats?from="+today+"&to="+today, token(t, core.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(50000), body["totalRevenue"])
	assert.Equal(t, float64(1), body["totalSettlements"])
}

func TestCancelTableRoute(t *testing.T) {
	api := newTestAPI(t, true)
	a := api.food(t, 10000)
	api.placeOrder(t, 8, a, 1)
	api.placeOrder(t, 8, a, 1)

	code, body := api.do(t, http.MethodPost, "/tables/8/cancel", token(t, core.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["cancelledCount"])

	code, body = api.do(t, http.MethodGet, "/tables/8/orders?status=cancelled", "", nil)
	require.Equal(t, http.StatusOK, code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(body["items"].(json.RawMessage), &orders))
	assert.Len(t, orders, 2)
}

func TestCatalogRoutes(t *testing.T) {
	api := newTestAPI(t, true)
	admin := token(t, core.RoleAdmin)

	code, _ := api.do(t, http.MethodPost, "/foods", token(t, core.RoleStaff), map[string]any{"name": "pho", "price": 45000})
	assert.Equal(t, http.StatusForbidden, code)

	code, body := api.do(t, http.MethodPost, "/foods", admin, map[string]any{"name": "pho", "price": 45000})
	require.Equal(t, http.StatusCreated, code)
	id := body["_id"].(string)

	code, body = api.do(t, http.MethodPatch, "/foods/"+id, admin, map[string]any{"isAvailable": false})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["isAvailable"])

	code, body = api.do(t, http.MethodPost, "/orders", "", map[string]any{
		"tableNumber": 1,
		"items":       []map[string]any{{"food": id, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, _ = api.do(t, http.MethodDelete, "/foods/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = api.do(t, http.MethodPost, "/tables", admin, map[string]any{"number": 3})
	assert.Equal(t, http.StatusCreated, code)
	code, body = api.do(t, http.MethodPost, "/tables", admin, map[string]any{"number": 3})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, string(core.KindConflict), body["kind"])
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, false)

	code, body := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestLiveTableChannel(t *testing.T) {
	api := newTestAPI(t, true)
	a := api.food(t, 10000)

	wsURL := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/ws?table=5"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	id := api.placeOrder(t, 5, a, 1)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first, second broadcast.Message
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, "order:new", first.Event)
	assert.Equal(t, "order:update", second.Event)
	assert.Equal(t, id, second.Order.ID)
	assert.Equal(t, 1, second.Version)
}

func TestLiveGlobalChannelNeedsStaff(t *testing.T) {
	api := newTestAPI(t, true)
	wsURL := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token(t, core.RoleStaff), nil)
	require.NoError(t, err)
	conn.Close()
}
