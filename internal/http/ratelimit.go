package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	rateWindow      = time.Minute
	rateIdleTimeout = 10 * time.Minute
)

// rateLimiter counts requests per client IP in fixed one-minute windows.
type rateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start time.Time
	count int
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	rl := &rateLimiter{
		windows: make(map[string]*window),
		limit:   perMinute,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.sweep(5 * time.Minute)
	return rl
}

// sweep drops clients idle for longer than rateIdleTimeout.
func (rl *rateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.forgetIdle()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) forgetIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rateIdleTimeout)
	for ip, w := range rl.windows {
		if w.start.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// take records a request and reports whether it fits the current window,
// plus the time left until the window resets.
func (rl *rateLimiter) take(clientIP string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[clientIP]
	if !ok || now.Sub(w.start) >= rateWindow {
		w = &window{start: now}
		rl.windows[clientIP] = w
	}
	w.count++
	return w.count <= rl.limit, w.start.Add(rateWindow).Sub(now)
}

func (rl *rateLimiter) allow(clientIP string) bool {
	ok, _ := rl.take(clientIP)
	return ok
}

// middleware rejects requests over the limit with 429.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, reset := rl.take(extractClientIP(r))
		if !ok {
			secs := int(reset.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
