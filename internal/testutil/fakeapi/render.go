package fakeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nkiryanov/fuowallet/internal/validate"
)

type ErrorResponse struct {
	Error   string            `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func renderJSON(w http.ResponseWriter, data any) {
	jsonWithStatus(w, data, http.StatusOK)
}

// Render error the way wallet backend does: {"message": "..."}
func renderMessage(w http.ResponseWriter, message string, code int) {
	jsonWithStatus(w, ErrorResponse{Message: message}, code)
}

// Some endpoints reply with bare json string
func renderString(w http.ResponseWriter, s string, code int) {
	jsonWithStatus(w, s, code)
}

func renderDecodeError(w http.ResponseWriter, err error) {
	response := ErrorResponse{Error: "decoding_failed"}

	// Try to provide more specific error message based on error type
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		response.Message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	default:
		response.Message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	jsonWithStatus(w, response, http.StatusBadRequest)
}

// bindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Writes error response on decoding or validation failures.
func bindAndValidate[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		renderDecodeError(w, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		response := ErrorResponse{Error: "validation_failed", Message: "Request validation failed"}

		var verr *validate.Error
		if errors.As(err, &verr) {
			response.Fields = verr.Fields
		}

		jsonWithStatus(w, response, http.StatusBadRequest)
		return value, err
	}

	return value, nil
}

// jsonWithStatus sends data as json and enforces status code
func jsonWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
