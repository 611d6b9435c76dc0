package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/unipass-api/pkg/config"
	"github.com/noah-isme/unipass-api/pkg/middleware/requestid"
)

func TestNewWithoutFile(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "debug", Format: "console"}})
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestNewWithRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "api.log")
	cfg := &config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "info", File: file, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}}

	l, err := New(cfg)
	require.NoError(t, err)
	l.Info("pass issued")
	_ = l.Sync()

	w := RotatingWriter(cfg.Log)
	assert.Equal(t, file, w.Filename)
	assert.Equal(t, 1, w.MaxSize)
	assert.True(t, w.Compress)
}

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(requestid.Middleware(), GinMiddleware(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/passes/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/health", "/passes/p-1", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "/passes/:id", entries[0].ContextMap()["route"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestForAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	For(context.Background(), base).Info("plain")
	For(requestid.NewContext(context.Background(), "req-7"), base).Info("tagged")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "request_id")
	assert.Equal(t, "req-7", entries[1].ContextMap()["request_id"])
}
