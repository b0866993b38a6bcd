package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/membership-api/internal/storage"
)

func TestMain(m *testing.M) {
	now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	m.Run()
}

func TestOKEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusCreated, OK("created", map[string]int{"id": 7})))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"success": true,
		"message": "created",
		"data": {"id": 7},
		"timestamp": "2026-01-02T03:04:05Z"
	}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("GetMember(1): %w", storage.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("CastVote: %w", storage.ErrConflict), http.StatusConflict},
		{fmt.Errorf("DeleteMember: %w", storage.ErrReference), http.StatusConflict},
		{fmt.Errorf("Backup(mysql): %w", storage.ErrUnsupported), http.StatusNotImplemented},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "internal server error", body.Message)
}

func TestValidationError(t *testing.T) {
	type input struct {
		Name  string `validate:"required"`
		Email string `validate:"email"`
		Level string `validate:"oneof=ward province"`
	}
	err := validator.New().Struct(input{Email: "nope", Level: "galaxy"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.False(t, resp.Success)
	assert.Equal(t,
		"field Name is required, field Email must be a valid email address, field Level must be one of [ward province]",
		resp.Message)
}
