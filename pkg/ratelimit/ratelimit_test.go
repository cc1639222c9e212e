package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func allow(sw *SlidingWindow, id string) bool {
	ok, _ := sw.Allow(id)
	return ok
}

func TestSlidingWindow(t *testing.T) {
	clock := newClock()
	sw := New(3, time.Minute, ClockOpt(clock.now))

	assert.True(t, allow(sw, "10.0.0.1"))
	clock.advance(20 * time.Second)
	assert.True(t, allow(sw, "10.0.0.1"))
	assert.True(t, allow(sw, "10.0.0.1"))
	assert.False(t, allow(sw, "10.0.0.1"))
	assert.Equal(t, 0, sw.Remaining("10.0.0.1"))

	// other identifiers have their own window
	assert.True(t, allow(sw, "10.0.0.2"))

	// a hit leaves the window exactly one window later
	clock.advance(40 * time.Second)
	assert.True(t, allow(sw, "10.0.0.1"))
	assert.False(t, allow(sw, "10.0.0.1"))

	// denials do not extend the window
	clock.advance(20 * time.Second)
	assert.Equal(t, 2, sw.Remaining("10.0.0.1"))
}

func TestSlidingWindow_Sweep(t *testing.T) {
	clock := newClock()
	sw := New(5, time.Hour, ClockOpt(clock.now))
	allow(sw, "a")
	allow(sw, "b")
	clock.advance(30 * time.Minute)
	allow(sw, "b")
	clock.advance(31 * time.Minute)
	assert.Equal(t, 1, sw.Sweep())
	assert.Equal(t, 4, sw.Remaining("b"))
	assert.Equal(t, 5, sw.Remaining("a"))
}

func TestSlidingWindow_Concurrent(t *testing.T) {
	sw := New(50, time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allow(sw, "crowd") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, admitted)
}

func TestSlidingWindow_EchoMiddleware(t *testing.T) {
	e := echo.New()
	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: New(2, time.Hour),
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
	e.GET("/isbn/:isbn", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Param("isbn"))
	}, limiter)

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/isbn/9780262046305", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
