package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(l *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(l), GinMiddleware(l))
	router.Use(func(c *gin.Context) {
		ctx := WithRequestID(c.Request.Context(), "req-9")
		c.Request = c.Request.WithContext(WithScope(ctx, "acme", "default"))
		c.Next()
	})
	return router
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs status level and scope", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		router := newTestRouter(zap.New(core))
		router.GET("/ok", func(c *gin.Context) {
			FromContext(c.Request.Context()).Info("inside handler")
			c.JSON(http.StatusOK, gin.H{})
		})
		router.GET("/missing", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok?period=2025-01", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		access := recorded.FilterMessage("HTTP Request").All()
		require.Len(t, access, 1)
		assert.Equal(t, zapcore.InfoLevel, access[0].Level)
		fields := access[0].ContextMap()
		assert.Equal(t, "req-9", fields["request_id"])
		assert.Equal(t, "acme", fields["tenant_id"])
		assert.Equal(t, "period=2025-01", fields["query"])
		assert.Len(t, recorded.FilterMessage("inside handler").All(), 1)

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
		access = recorded.FilterMessage("HTTP Request").All()
		require.Len(t, access, 2)
		assert.Equal(t, zapcore.WarnLevel, access[1].Level)
	})
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	router := newTestRouter(zap.New(core))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"INTERNAL"`)
	assert.Len(t, recorded.FilterMessage("Panic recovered").All(), 1)
}
