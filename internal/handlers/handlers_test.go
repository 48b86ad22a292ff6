// internal/handlers/handlers_test.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopgraph/catalog-backend/internal/services"
)

func respond(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondServiceError(c, err)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	return body["error"].(map[string]interface{})
}

func TestServiceErrorMapping(t *testing.T) {
	w := respond(t, services.ErrProductNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w)["code"])

	w = respond(t, services.ErrCategoryNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = respond(t, services.ErrConcurrentModification)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, w)["code"])

	w = respond(t, services.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = respond(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, w)["code"])
}

func TestCompensationErrorHasDistinctCode(t *testing.T) {
	err := &services.CompensationError{
		ProductID: "000000000000000000000001",
		Op:        "delete",
		Cause:     errors.New("connection reset"),
	}

	w := respond(t, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	apiErr := decodeError(t, w)
	assert.Equal(t, "COMPENSATION_FAILED", apiErr["code"])

	details := apiErr["details"].(map[string]interface{})
	assert.Equal(t, "000000000000000000000001", details["product_id"])
	assert.Equal(t, "delete", details["operation"])
}

func TestServiceErrorMappingUnwrapsCause(t *testing.T) {
	wrapped := errors.Join(services.ErrProductNotFound)

	w := respond(t, wrapped)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
