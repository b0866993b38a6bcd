// Package request holds the decode-and-validate step every JSON handler
// starts with.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/membership-api/internal/utils/response"
)

// validate is shared: validator caches struct metadata per type.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the validate:"..." rules on v.
func Validate(v any) error {
	return validate.Struct(v)
}

// Decode reads a JSON body into v and validates it. On failure it writes a
// 400 response and returns false; the handler should simply return.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		response.BadRequest(w, errors.New("request body is empty"))
		return false
	}
	if err != nil {
		response.BadRequest(w, err)
		return false
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
			return false
		}
		response.BadRequest(w, err)
		return false
	}
	return true
}

// PathID parses the {name} path segment as an int64. On failure it writes a
// 400 and returns false.
func PathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		response.BadRequest(w, fmt.Errorf("invalid %s: must be an integer", name))
		return 0, false
	}
	return id, true
}

// QueryInt reads an optional integer query parameter.
func QueryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
