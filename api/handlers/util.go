package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sprintertech/sprinter-treasury/treasury"
)

// Amount is a local precision amount accepted both as a JSON number and a decimal string.
type Amount uint64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), "\"")
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse amount from %s", s)
	}

	*a = Amount(v)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(a), 10)), nil
}

var statusByKind = map[treasury.Kind]int{
	treasury.Malformed:     http.StatusBadRequest,
	treasury.Consistency:   http.StatusBadRequest,
	treasury.Integrity:     http.StatusUnprocessableEntity,
	treasury.Authorization: http.StatusForbidden,
	treasury.Replay:        http.StatusConflict,
	treasury.Insufficient:  http.StatusServiceUnavailable,
	treasury.Internal:      http.StatusInternalServerError,
}

type errorResponse struct {
	Code      int    `json:"code"`
	Reason    string `json:"reason"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable"`
}

func JSONError(w http.ResponseWriter, err error, code int) {
	writeError(w, errorResponse{
		Reason: err.Error(),
		Code:   code,
	})
}

// LedgerError writes a ledger failure with the status matching its kind.
func LedgerError(w http.ResponseWriter, err error) {
	kind := treasury.KindOf(err)
	code := statusByKind[kind]
	writeError(w, errorResponse{
		Reason:    err.Error(),
		Code:      code,
		Kind:      kind.String(),
		Retryable: kind.Retryable(),
	})
}

func writeError(w http.ResponseWriter, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(resp.Code)
	_ = json.NewEncoder(w).Encode(resp)
}

func JSONResponse(w http.ResponseWriter, v interface{}) {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
