package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestClampPage(t *testing.T) {
	assert.Equal(t, 1, ClampPage(0))
	assert.Equal(t, 1, ClampPage(-5))
	assert.Equal(t, 3, ClampPage(3))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, ClampLimit(0))
	assert.Equal(t, 10, ClampLimit(-1))
	assert.Equal(t, 25, ClampLimit(25))
	assert.Equal(t, 100, ClampLimit(500))
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/tasks?page=3&limit=20", nil)

	params := GetPaginationParams(c)
	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 20, params.Limit)
	assert.Equal(t, 40, params.Offset)
}

func TestGetPaginationParamsDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/tasks?page=-1&limit=9999", nil)

	params := GetPaginationParams(c)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 100, params.Limit)
	assert.Equal(t, 0, params.Offset)
}

func TestNewPaginationResponse(t *testing.T) {
	resp := NewPaginationResponse(2, 10, 35)
	assert.Equal(t, 4, resp.TotalPages)
	assert.True(t, resp.HasNextPage)
	assert.True(t, resp.HasPrevPage)

	resp = NewPaginationResponse(1, 10, 0)
	assert.Equal(t, 0, resp.TotalPages)
	assert.False(t, resp.HasNextPage)
	assert.False(t, resp.HasPrevPage)

	resp = NewPaginationResponse(4, 10, 35)
	assert.False(t, resp.HasNextPage)
	assert.True(t, resp.HasPrevPage)
}
