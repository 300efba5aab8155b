package inflight

import (
	"context"
	"net/http"
	"sync"
)

// Counter tracks relay requests in progress so shutdown can wait for them.
// The zero value is ready to use.
type Counter struct {
	mu    sync.Mutex
	count int64
	idle  chan struct{} // closed while count == 0
}

// Inc records the start of a request.
func (c *Counter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init()
	if c.count == 0 {
		c.idle = make(chan struct{})
	}
	c.count++
}

// Dec records the end of a request. Extra calls are ignored.
func (c *Counter) Dec() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.init()
	if c.count == 0 {
		return
	}
	c.count--
	if c.count == 0 {
		close(c.idle)
	}
}

// Load returns the current count.
func (c *Counter) Load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// WaitForZero blocks until no request is in flight or ctx is done. It reports
// whether zero was reached.
func (c *Counter) WaitForZero(ctx context.Context) bool {
	c.mu.Lock()
	c.init()
	ch := c.idle
	c.mu.Unlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Counter) init() {
	if c.idle == nil {
		c.idle = make(chan struct{})
		if c.count == 0 {
			close(c.idle)
		}
	}
}

// Middleware counts every request passing through next.
func (c *Counter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Inc()
		defer c.Dec()
		next.ServeHTTP(w, r)
	})
}
