package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ParseJSON decodes JSON from the request body into dest
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes a 400 on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) (string, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// ParsePathStringOrError extracts a string path parameter and writes a 400 on failure
func ParsePathStringOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val, err := ParsePathString(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return "", false
	}
	return val, true
}

// ParsePathUUIDOrError extracts a UUID path parameter in canonical form and writes a 400 when it is
// missing or malformed
func ParsePathUUIDOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val, ok := ParsePathStringOrError(w, r, key)
	if !ok {
		return "", false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("invalid %s", key))
		return "", false
	}
	return id.String(), true
}

// ParseQueryInt extracts and parses an integer query parameter
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryString extracts a string query parameter
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return defaultVal
}

// ParsePagination reads limit/offset, clamping limit to [1, maxLimit]
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) (limit, offset int, err error) {
	limit, err = ParseQueryInt(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err = ParseQueryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}

// Validator reports a validation failure message, or "" when the value is valid
type Validator func() string

// Required fails when value is blank
func Required(field, value string) Validator {
	return func() string {
		if strings.TrimSpace(value) == "" {
			return fmt.Sprintf("%s is required", field)
		}
		return ""
	}
}

// MinItems fails when n is smaller than min
func MinItems(field string, n, min int) Validator {
	return func() string {
		if n < min {
			return fmt.Sprintf("%s must contain at least %d items", field, min)
		}
		return ""
	}
}

// Validate writes a 400 for the first failing validator and reports whether all passed
func Validate(w http.ResponseWriter, validators ...Validator) bool {
	for _, v := range validators {
		if msg := v(); msg != "" {
			WriteBadRequest(w, msg)
			return false
		}
	}
	return true
}
