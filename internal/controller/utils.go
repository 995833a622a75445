package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
)

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type apiResponse[T any] struct {
	Data T `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, apiResponse[any]{Data: v})
}

// statusOf 错误类型 -> HTTP 状态码
func statusOf(err error) int {
	if errs.IsTimeout(err) {
		return http.StatusGatewayTimeout
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch errs.KindOf(err) {
	case errs.KindConfig, errs.KindInvalid, errs.KindParse:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindBusy, errs.KindUnavailable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeErrStatus(w, statusOf(err), err)
}

func writeErrStatus(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apiError{Error: err.Error(), Kind: string(errs.KindOf(err))})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, apiError{Error: msg, Kind: string(errs.KindInvalid)})
}

func parseLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}
