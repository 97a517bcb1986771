package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
)

const maxBodyBytes = 1 << 20

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       ErrorBody
	Raw        []byte
}

func (e *APIError) Error() string {
	msg := e.Body.FirstMessage()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is maps the status code onto the shared sentinel errors
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return target == apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return target == apperrors.ErrForbidden
	case http.StatusNotFound:
		return target == apperrors.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return target == apperrors.ErrValidation
	case http.StatusConflict:
		return target == apperrors.ErrConflict
	}
	return false
}

// StatusCode returns the HTTP status of err, or 0 when err is not an *APIError
func StatusCode(err error) int {
	var apiErr *APIError
	if apperrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// newAPIError reads and closes resp.Body
func newAPIError(req *http.Request, resp *http.Response) *APIError {
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		Path:       req.URL.Path,
		Raw:        raw,
	}
	apiErr.Body = ParseErrorBody(raw)
	return apiErr
}

// ErrorBody is the backend's error payload. The backend is not consistent about
// where field errors live, so every shape seen in practice is accepted:
//
//	{"message": "...", "errors": {"field": "msg"}}
//	{"message": "...", "fieldErrors": {"field": "msg"}}
//	{"message": "...", "errors": [{"field": "...", "defaultMessage": "..."}]}
//	{"message": "..."}
type ErrorBody struct {
	Message     string
	FieldErrors map[string]string
}

type fieldErrorItem struct {
	Field          string `json:"field"`
	DefaultMessage string `json:"defaultMessage"`
	Message        string `json:"message"`
}

// ParseErrorBody never fails. Plain text bodies become the message.
func ParseErrorBody(raw []byte) ErrorBody {
	body := ErrorBody{FieldErrors: map[string]string{}}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return body
	}

	var envelope struct {
		Message     *string         `json:"message"`
		Errors      json.RawMessage `json:"errors"`
		FieldErrors json.RawMessage `json:"fieldErrors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Spring sometimes answers with a bare string
		var s string
		if json.Unmarshal(raw, &s) == nil {
			body.Message = s
		} else if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
			body.Message = trimmed
		}
		return body
	}

	if envelope.Message != nil {
		body.Message = strings.TrimSpace(*envelope.Message)
	}
	if fields := parseFieldErrors(envelope.Errors); len(fields) > 0 {
		body.FieldErrors = fields
	} else if fields := parseFieldErrors(envelope.FieldErrors); len(fields) > 0 {
		body.FieldErrors = fields
	}
	return body
}

func parseFieldErrors(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}

	var asMap map[string]string
	if json.Unmarshal(raw, &asMap) == nil {
		out := make(map[string]string, len(asMap))
		for field, msg := range asMap {
			if field != "" && msg != "" {
				out[field] = msg
			}
		}
		return out
	}

	var asList []fieldErrorItem
	if json.Unmarshal(raw, &asList) == nil {
		out := make(map[string]string, len(asList))
		for _, item := range asList {
			msg := item.DefaultMessage
			if msg == "" {
				msg = item.Message
			}
			if item.Field != "" && msg != "" {
				out[item.Field] = msg
			}
		}
		return out
	}
	return nil
}

func (b ErrorBody) HasFieldErrors() bool {
	return len(b.FieldErrors) > 0
}

// FirstMessage picks one message to show the user. Field errors win over the
// top level message; fields named in preferred are tried first, in order, then
// the remaining fields alphabetically.
func (b ErrorBody) FirstMessage(preferred ...string) string {
	for _, field := range preferred {
		if msg := b.FieldErrors[field]; msg != "" {
			return msg
		}
	}
	if len(b.FieldErrors) > 0 {
		fields := make([]string, 0, len(b.FieldErrors))
		for field := range b.FieldErrors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		return b.FieldErrors[fields[0]]
	}
	return b.Message
}

// MessageOr returns the top level message, or fallback when there is none
func (b ErrorBody) MessageOr(fallback string) string {
	if b.Message != "" {
		return b.Message
	}
	return fallback
}
