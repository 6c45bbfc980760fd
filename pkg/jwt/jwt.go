package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hieplh/ata-sample-webapp/config"
)

var (
	ErrTokenInvalid = errors.New("token 无效")
)

// InvalidTokenError 携带解析库返回的原始错误信息
// errors.Is(err, ErrTokenInvalid) 为 true
type InvalidTokenError struct {
	Reason string
}

func (e *InvalidTokenError) Error() string { return e.Reason }

func (e *InvalidTokenError) Is(target error) bool { return target == ErrTokenInvalid }

// ContextKey 认证通过后 Claims 在请求上下文中的键
const ContextKey = "claims"

// Claims Token 载荷：用户身份快照
// 不设置 exp 声明，过期以 user_token 表中的 expired_at 为准
type Claims struct {
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	Department string    `json:"department,omitempty"`
	Role       string    `json:"role,omitempty"`
	Firstname  string    `json:"firstname"`
	Lastname   string    `json:"lastname"`
	Middlename string    `json:"middlename,omitempty"`
	Email      string    `json:"email"`
	ExpiredAt  time.Time `json:"expired_at"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
type Manager struct {
	secret []byte
	method jwtv5.SigningMethod
}

// NewManager 创建 JWT 管理器，算法取 HS256/HS384/HS512 之一
func NewManager(cfg *config.AuthConfig) *Manager {
	method := jwtv5.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwtv5.SigningMethodHMAC); !ok {
		method = jwtv5.SigningMethodHS256
	}
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		method: method,
	}
}

// Generate 签发 Token，自动填充 jti 与 iat
func (m *Manager) Generate(claims Claims) (string, error) {
	claims.RegisteredClaims = jwtv5.RegisteredClaims{
		ID:       uuid.New().String(),
		IssuedAt: jwtv5.NewNumericDate(time.Now()),
	}
	token := jwtv5.NewWithClaims(m.method, claims)
	return token.SignedString(m.secret)
}

// Parse 解析并验证签名
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithValidMethods([]string{m.method.Alg()}))

	if err != nil {
		return nil, &InvalidTokenError{Reason: err.Error()}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &InvalidTokenError{Reason: ErrTokenInvalid.Error()}
	}

	return claims, nil
}
