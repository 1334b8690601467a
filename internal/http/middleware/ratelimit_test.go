package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestClientKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newEngine()
	r.GET("/k", func(c *gin.Context) { c.String(http.StatusOK, ClientKey(c)) })

	if got := do(r, http.MethodGet, "/k", map[string]string{HeaderTelegramID: "42"}).Body.String(); got != "tg:42" {
		t.Fatalf("tg key = %q", got)
	}
	for _, bad := range []string{"", "abc", "-3", "0"} {
		got := do(r, http.MethodGet, "/k", map[string]string{HeaderTelegramID: bad}).Body.String()
		if got[:3] != "ip:" {
			t.Fatalf("header %q should fall back to ip, got %q", bad, got)
		}
	}
}

func TestRateLimiter_AllowDenyBypass(t *testing.T) {
	rl := NewRateLimiter(0, 1, nil)
	r := newEngine(func(c *gin.Context) {
		if c.GetHeader("X-Replay") == "1" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}, rl.Handler())
	r.POST("/q", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	h := map[string]string{HeaderTelegramID: "1"}
	if w := do(r, http.MethodPost, "/q", h); w.Code != http.StatusAccepted {
		t.Fatalf("first request = %d", w.Code)
	}
	w := do(r, http.MethodPost, "/q", h)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("second request = %d", w.Code)
	}

	// Another user has its own bucket.
	if w := do(r, http.MethodPost, "/q", map[string]string{HeaderTelegramID: "2"}); w.Code != http.StatusAccepted {
		t.Fatalf("other user = %d", w.Code)
	}
	// Replays skip the limiter.
	if w := do(r, http.MethodPost, "/q", map[string]string{HeaderTelegramID: "1", "X-Replay": "1"}); w.Code != http.StatusAccepted {
		t.Fatalf("replay = %d", w.Code)
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 0, func(*gin.Context) string { return "k" })
	if rl.burst != 1 {
		t.Fatalf("burst should be coerced to 1")
	}
	first := rl.limiter("old")
	rl.mu.Lock()
	rl.visitors["old"].lastSeen = time.Now().Add(-time.Hour)
	rl.lookups = gcEvery - 1
	rl.mu.Unlock()

	if rl.limiter("old") == first {
		t.Fatalf("stale bucket should have been replaced")
	}
	if again := rl.limiter("old"); again != rl.limiter("old") {
		t.Fatalf("live bucket should be reused")
	}
}
