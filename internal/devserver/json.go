package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-reserve-client/api"
)

const contentTypeJSON = "application/json; charset=utf-8"

func writeJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError answers with the backend's {"message": ...} error shape
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"message": message}, statusCode)
}

// writeValidationError answers 400 with per field messages
func writeValidationError(w http.ResponseWriter, message string, fieldErrors map[string]string) {
	writeJSON(w, map[string]any{
		"message": message,
		"errors":  fieldErrors,
	}, http.StatusBadRequest)
}

func writeText(w http.ResponseWriter, text string, statusCode int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(text))
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}

// pathID reads the {id} wildcard
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// pageParams reads page and size the way Spring's Pageable does
func pageParams(r *http.Request) (page, size int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	size, _ = strconv.Atoi(q.Get("size"))
	if size <= 0 {
		size = api.DefaultPageSize
	}
	if page < 0 {
		page = 0
	}
	return page, size
}
