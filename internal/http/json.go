package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DecodeJSON reads one JSON value into dst, rejecting unknown fields. On
// failure it has already written the error response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return true
	case errors.As(err, &tooLarge):
		fail(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
	case errors.Is(err, io.EOF):
		fail(w, http.StatusBadRequest, "invalid_json", "request body is empty")
	default:
		fail(w, http.StatusBadRequest, "invalid_json", err.Error())
	}
	return false
}

// WriteJSON encodes before writing so an encoding failure can still be a 500.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	Field   string
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// WriteError falls back to the status text when p.Err is nil.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := errorBody{Error: http.StatusText(p.Code), Code: p.ErrCode, Field: p.Field}
	if p.Err != nil {
		body.Error = p.Err.Error()
	}
	WriteJSON(w, p.Code, body)
}

func fail(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, errorBody{Error: msg, Code: code})
}
