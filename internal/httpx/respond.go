package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/bagstore/internal/orders"
)

var statusByKind = map[orders.Kind]int{
	orders.KindUnauthenticated:   http.StatusUnauthorized,
	orders.KindForbidden:         http.StatusForbidden,
	orders.KindInvalidQuantity:   http.StatusBadRequest,
	orders.KindInvalidProduct:    http.StatusBadRequest,
	orders.KindProductNotFound:   http.StatusNotFound,
	orders.KindOrderNotFound:     http.StatusNotFound,
	orders.KindInsufficientStock: http.StatusConflict,
	orders.KindInvalidTransition: http.StatusConflict,
	orders.KindStoreUnavailable:  http.StatusServiceUnavailable,

	orders.KindIdempotencyConflict: http.StatusConflict,
}

type errorResp struct {
	Error string      `json:"error"`
	Kind  orders.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders a service error. Anything untyped is treated as a backend outage.
func writeError(w http.ResponseWriter, err error) {
	kind := orders.KindOf(err)
	if kind == "" {
		kind = orders.KindStoreUnavailable
	}
	code, ok := statusByKind[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, errorResp{Error: orders.ReasonOf(err), Kind: kind})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResp{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// wholeNumber parses a JSON number that must be an integer. ok is false for 1.5, "abc" or missing.
func wholeNumber(n json.Number) (int, bool) {
	if n == "" {
		return 0, false
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, false
	}
	return v, true
}

func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
