package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

func TestWriteSaved_PreservesHeaderOrderAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSaved(rec, &domain.SavedResponse{
		StatusCode: http.StatusSeeOther,
		Headers: []domain.HeaderPair{
			{Name: "Location", Value: []byte("/admin/newsletters")},
			{Name: "Vary", Value: []byte("b")},
			{Name: "Vary", Value: []byte("a")},
		},
		Body: []byte("body"),
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/newsletters", rec.Header().Get("Location"))
	assert.Equal(t, []string{"b", "a"}, rec.Header().Values("Vary"))
	assert.Equal(t, "body", rec.Body.String())
}

func TestInvalid(t *testing.T) {
	rec := httptest.NewRecorder()
	Invalid(rec, &domain.ValidationError{Field: "idempotency_key", Reason: "cannot be empty"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_idempotency_key", body.Code)
}

func TestInternalError_HidesCause(t *testing.T) {
	var logs bytes.Buffer
	rec := httptest.NewRecorder()
	InternalError(rec, logger.New(logger.Options{Output: &logs}), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, logs.String(), "password authentication failed")
}
