// Package http serves the saldo JSON API.
//
// This file implements the builder used for every response so headers,
// status codes and error bodies are produced the same way everywhere.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"saldo/internal/core"
	"saldo/internal/store"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("encode response: %w", err)
		return b
	}
	return b.RawJSON(data)
}

// RawJSON uses already encoded JSON as the body.
func (b *ResponseBuilder) RawJSON(data []byte) *ResponseBuilder {
	b.headers["Content-Type"] = "application/json"
	b.body = data
	return b
}

// Attachment sends content as a download named filename.
func (b *ResponseBuilder) Attachment(contentType, filename string, content []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = fmt.Sprintf(`attachment; filename="%s"`, filename)
	b.body = content
	return b
}

// Body sends content inline with the given content type.
func (b *ResponseBuilder) Body(contentType string, content []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.body = content
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		ErrorResponse(http.StatusInternalServerError, "internal error").Write(w)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// Success is the acknowledgement body of the gateway contract.
func Success() *ResponseBuilder {
	return NewResponse().JSON(map[string]bool{"success": true})
}

// ErrorResponse creates a JSON error body {"error": message}.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(map[string]string{"error": message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// requestError carries a status chosen at the point the request was rejected.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func invalidParam(format string, args ...any) error {
	return &requestError{status: http.StatusUnprocessableEntity, msg: fmt.Sprintf(format, args...)}
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrZeroAmount,
	core.ErrEmptyDescription,
	core.ErrInvalidRecurrence,
	core.ErrEndBeforeAnchor,
	core.ErrIncompleteLink,
	core.ErrEmptyAccountName,
	core.ErrMissingTemplateID,
	core.ErrMissingAccountID,
	core.ErrDuplicateTemplateID,
	store.ErrTransferTarget,
}

// StatusFor maps an error to the HTTP status the API reports for it.
func StatusFor(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status
	}
	switch {
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrTemplateNotFound),
		errors.Is(err, store.ErrOccurrenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrLastAccount):
		return http.StatusConflict
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// errorFor builds the error response for err. Internal errors are not
// echoed to the client.
func errorFor(err error) *ResponseBuilder {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return InternalServerError("internal error")
	}
	return ErrorResponse(status, err.Error())
}
