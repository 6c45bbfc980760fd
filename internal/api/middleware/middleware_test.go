package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator struct {
	claims *jwt.Claims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (*jwt.Claims, error) {
	s.token = token
	return s.claims, s.err
}

type stubCounter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubCounter) CheckRateLimit(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	s.calls++
	return s.allowed, s.err
}

func do(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		validator *stubValidator
		wantCode  int
		wantMsg   string
	}{
		{name: "缺少认证头", header: "", validator: &stubValidator{}, wantCode: http.StatusForbidden},
		{name: "格式错误", header: "Token abc", validator: &stubValidator{}, wantCode: http.StatusForbidden},
		{
			name:      "Token 过期",
			header:    "Bearer abc",
			validator: &stubValidator{err: pkgerrors.Forbidden("Token expired")},
			wantCode:  http.StatusForbidden,
			wantMsg:   "Token expired",
		},
		{
			name:      "数据库异常",
			header:    "Bearer abc",
			validator: &stubValidator{err: pkgerrors.Internal(errors.New("connection refused"))},
			wantCode:  http.StatusInternalServerError,
			wantMsg:   "connection refused",
		},
		{
			name:      "通过",
			header:    "Bearer abc",
			validator: &stubValidator{claims: &jwt.Claims{Username: "alice"}},
			wantCode:  http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/me", Auth(tc.validator), func(c *gin.Context) {
				claims := c.MustGet(jwt.ContextKey).(*jwt.Claims)
				c.String(http.StatusOK, claims.Username)
			})

			header := map[string]string{}
			if tc.header != "" {
				header["Authorization"] = tc.header
			}
			w := do(r, http.MethodGet, "/me", header)

			assert.Equal(t, tc.wantCode, w.Code)
			if tc.wantMsg != "" {
				assert.JSONEq(t, `{"errMsg":"`+tc.wantMsg+`"}`, w.Body.String())
			}
			if tc.wantCode == http.StatusOK {
				assert.Equal(t, "alice", w.Body.String())
				assert.Equal(t, "abc", tc.validator.token)
			}
		})
	}
}

func TestRateLimit_RedisDecides(t *testing.T) {
	counter := &stubCounter{allowed: false}
	r := gin.New()
	r.POST("/login", RateLimit(counter, 5, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, counter.calls)
}

func TestRateLimit_FallbackWithoutRedis(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(nil, 2, time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/login", nil).Code)
}

func TestLocalLimiter_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	l := newLocalLimiter(1, time.Minute)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.Equal(t, 2, l.size())

	now = now.Add(30 * time.Second)
	assert.False(t, l.allow("10.0.0.2"), "窗口内仍受限")

	// 10.0.0.1 空闲满一个窗口后被清理，10.0.0.2 刚访问过保留
	now = now.Add(45 * time.Second)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Equal(t, 2, l.size())
	assert.True(t, l.allow("10.0.0.1"), "重建的桶是满的")
}

func TestRateLimit_FallbackOnRedisError(t *testing.T) {
	counter := &stubCounter{err: errors.New("redis down")}
	r := gin.New()
	r.POST("/login", RateLimit(counter, 1, time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/login", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/login", nil).Code)
	assert.Equal(t, 2, counter.calls)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"errMsg":"boom"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := do(r, http.MethodGet, "/", map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://hr.example.com/"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/", map[string]string{"Origin": "https://hr.example.com"})
	assert.Equal(t, "https://hr.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodOptions, "/", map[string]string{"Origin": "https://hr.example.com"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
