package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTimeoutRouter(d time.Duration, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Timeout(d))
	r.GET("/test", handler)
	return r
}

func TestTimeout_HandlerCompletesInTime(t *testing.T) {
	r := newTimeoutRouter(100*time.Millisecond, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestTimeout_ContextHasDeadline(t *testing.T) {
	r := newTimeoutRouter(500*time.Millisecond, func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); !ok {
			t.Error("context has no deadline; middleware did not set one")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
}

func TestTimeout_503WhenHandlerExitsWithoutWriting(t *testing.T) {
	// The handler waits out the deadline, then returns without writing. The
	// middleware detects context expiry and writes the 503 itself.
	r := newTimeoutRouter(5*time.Millisecond, func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestTimeout_HandlerResponseNotOverwritten(t *testing.T) {
	// A response written before the deadline expires must survive.
	r := newTimeoutRouter(5*time.Millisecond, func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"done": true})
		time.Sleep(20 * time.Millisecond)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 (handler response must not be overwritten)", w.Code)
	}
}

func TestTimeout_DeadlinePropagatesToOutboundStyleCalls(t *testing.T) {
	// A handler that blocks on slow upstream work but respects its context
	// exits when the deadline fires, yielding the middleware's 503.
	r := newTimeoutRouter(10*time.Millisecond, func(c *gin.Context) {
		done := make(chan struct{})
		go func() {
			time.Sleep(200 * time.Millisecond)
			close(done)
		}()

		select {
		case <-c.Request.Context().Done():
			return
		case <-done:
			c.JSON(http.StatusOK, gin.H{"ok": true})
		}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestTimeout_PreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTimeoutRouter(100*time.Millisecond, func(c *gin.Context) {
		if c.Request.Context().Err() == nil {
			t.Error("expected cancelled context, got nil error")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx))
}
