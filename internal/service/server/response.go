package server

import (
	"encoding/json"
	"net/http"

	appErrors "wallet_chat/internal/errors"
	"wallet_chat/internal/utils/log"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func statusOf(code appErrors.Code) int {
	switch code {
	case appErrors.CodeInvalidArgument, appErrors.CodeFailedPrecondition:
		return http.StatusBadRequest
	case appErrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case appErrors.CodeNotFound:
		return http.StatusNotFound
	case appErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("marshal response failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError maps err to a status. Payment failures carry the collaborator's
// detail; errors without a code never leak their text.
func writeError(w http.ResponseWriter, op string, err error) {
	code := appErrors.CodeOf(err)
	status := statusOf(code)

	msg := appErrors.MessageOf(err)
	switch code {
	case appErrors.CodePaymentFailed:
		msg = err.Error()
	case appErrors.CodeUnknown, appErrors.CodeInternal:
		msg = "internal error"
	}

	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", zap.Error(err))
	} else {
		log.Debug(op+" rejected", zap.Error(err))
	}
	writeJSON(w, status, &errorBody{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return appErrors.Wrap(appErrors.CodeInvalidArgument, "malformed request body", err)
	}
	return nil
}
