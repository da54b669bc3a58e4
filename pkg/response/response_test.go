package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntholi/registry-web-sub009/internal/models"
	appErrors "github.com/ntholi/registry-web-sub009/pkg/errors"
	"github.com/ntholi/registry-web-sub009/pkg/middleware/requestid"
)

func render(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(w, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestErrorUsesKindStatusAndRequestID(t *testing.T) {
	w, body := render(t, func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrConflict, "registration already exists"))
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `"req-42"`, string(body["requestId"]))
	assert.Contains(t, string(body["error"]), `"CONFLICT"`)
	assert.NotContains(t, body, "data")
}

func TestErrorHidesUnknownFailures(t *testing.T) {
	w, body := render(t, func(c *gin.Context) {
		Error(c, errors.New("pq: connection refused"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, string(body["error"]), "connection refused")
}

func TestPageCarriesPagination(t *testing.T) {
	w, body := render(t, func(c *gin.Context) {
		Page(c, []string{"a"}, &models.Pagination{Page: 2, PageSize: 1, TotalCount: 3})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(body["pagination"]), `"totalCount":3`)
}
