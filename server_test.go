package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestStartWorkers_StopWaitsForExit(t *testing.T) {
	var running, finished atomic.Int32
	started := make(chan struct{}, 2)
	worker := func(ctx context.Context) {
		running.Add(1)
		started <- struct{}{}
		<-ctx.Done()
		// simulate a transaction still committing after cancellation
		time.Sleep(50 * time.Millisecond)
		finished.Add(1)
	}

	stop := startWorkers(context.Background(), worker, worker)
	<-started
	<-started
	stop()

	if got := finished.Load(); got != 2 {
		t.Fatalf("expected stop to wait for both workers, %d finished", got)
	}
	stop()
	if running.Load() != 2 {
		t.Fatalf("expected 2 workers, got %d", running.Load())
	}
}

func TestReadinessGate(t *testing.T) {
	var ready atomic.Bool
	r := newGateRouter(&ready)

	cases := []struct {
		path  string
		ready bool
		want  int
	}{
		{"/healthz", false, 204},
		{"/ping", false, 503},
		{"/ping", true, 200},
	}
	for _, tc := range cases {
		ready.Store(tc.ready)
		if got := serveStatus(r, tc.path); got != tc.want {
			t.Fatalf("%s ready=%v: expected %d, got %d", tc.path, tc.ready, tc.want, got)
		}
	}
}

func newGateRouter(ready *atomic.Bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(readinessGate(ready))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serveStatus(r http.Handler, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}
