package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"dine-order/internal/order/app/core"
)

const maxBodyBytes = 1 << 20

// jsonResponse writes the given data as a JSON-encoded HTTP response.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes an error response as JSON with the specified HTTP status code.
func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"kind":  core.KindOf(err),
		"code":  code,
	})
}

// domainError maps an engine error to its status code and writes it with the
// detail a client needs to recover.
func domainError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	body := map[string]interface{}{
		"error": err.Error(),
		"kind":  core.KindOf(err),
		"code":  code,
	}

	var transitionErr *core.InvalidTransitionError
	var settleErr *core.PartialSettlementError
	var bulkErr *core.PartialFailureError
	switch {
	case errors.As(err, &transitionErr):
		body["orderId"] = transitionErr.OrderID
		body["currentStatus"] = transitionErr.From
		body["requestedStatus"] = transitionErr.To
	case errors.As(err, &settleErr):
		body["payment"] = settleErr.Payment
		body["settled"] = settleErr.Settled
		body["failed"] = failedDetail(settleErr.Failed)
	case errors.As(err, &bulkErr):
		body["succeeded"] = bulkErr.Succeeded
		body["failed"] = failedDetail(bulkErr.Failed)
	}

	jsonResponse(w, code, body)
}

type failure struct {
	OrderID string    `json:"orderId"`
	Kind    core.Kind `json:"kind"`
	Error   string    `json:"error"`
}

func failedDetail(failed map[string]error) []failure {
	out := make([]failure, 0, len(failed))
	for id, err := range failed {
		out = append(out, failure{OrderID: id, Kind: core.KindOf(err), Error: err.Error()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// StatusCode is the HTTP status for an engine error.
func StatusCode(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation, core.KindEmptyOrder:
		return http.StatusBadRequest
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindInvalidTransition, core.KindNothingToSettle, core.KindConflict:
		return http.StatusConflict
	case core.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.Validationf("failed to parse JSON: %v", err)
	}
	return nil
}

// intParam parses a path or query value; empty gives zero.
func intParam(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, core.Validationf("%s must be an integer: %q", name, value)
	}
	return n, nil
}
