package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// WindowCounter 滑动窗口计数器（pkg/redis.Client 实现）
type WindowCounter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// localLimiter 进程内令牌桶，按 key 区分
// 空闲超过一个窗口的桶已回满，清理后重建等价
type localLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	every     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		limiters:  make(map[string]*limiterEntry),
		every:     rate.Every(window / time.Duration(limit)),
		burst:     limit,
		window:    window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.lim.AllowN(now, 1)
}

// sweep 清理空闲超过一个窗口的 key，调用方持有锁
func (l *localLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.window {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimit 公开认证接口限流
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// counter 为 nil 或 Redis 出错时降级为进程内令牌桶
func RateLimit(counter WindowCounter, limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiter(limit, window)

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		var allowed bool
		if counter != nil {
			ok, err := counter.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err == nil {
				allowed = ok
			} else {
				allowed = local.allow(key)
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			response.AbortError(c, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}
