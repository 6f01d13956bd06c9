package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthController(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]Check
		wantCode int
		wantBody string
	}{
		{"ready", map[string]Check{"issues": healthy}, http.StatusOK, `{"status":"ok","checks":{"issues":"ok"}}`},
		{"redis down", map[string]Check{"issues": healthy, "redis": down}, http.StatusServiceUnavailable,
			`{"status":"unavailable","checks":{"issues":"ok","redis":"connection refused"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthController(tt.checks)
			r := gin.New()
			r.GET("/healthz", hc.Live)
			r.GET("/readyz", hc.Ready)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, w.Code)

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
