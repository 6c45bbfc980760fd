package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hieplh/ata-sample-webapp/config"
	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/model"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
	"github.com/hieplh/ata-sample-webapp/pkg/identity"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("Username or Password is incorrect")
	ErrFaceNotIdentified  = errors.New("Face identification is incorrect")
)

const (
	msgTokenExpired = "Token expired"
	msgUserNotExist = "User does not exist"
)

// LoginResult 登录结果；TwoFactorRequired 为 true 时 Token 为空
type LoginResult struct {
	Token             *dto.TokenResponse
	TwoFactorRequired bool
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error)
	LoginByFace(ctx context.Context, username string, face identity.File) (*dto.TokenResponse, error)
	// GenerateToken 为用户签发新 Token 并落库
	GenerateToken(ctx context.Context, user *model.UserAccount) (*model.UserToken, error)
	// ValidateToken 校验 Token；失败时删除库中记录并返回 403 类错误
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
	Logout(ctx context.Context, username string) error
}

type authService struct {
	cfg      *config.Config
	repo     *repository.Repository
	jwtMgr   *jwt.Manager
	identity IdentityClient
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(deps Dependencies) AuthService {
	return &authService{
		cfg:      deps.Config,
		repo:     deps.Repo,
		jwtMgr:   deps.JWT,
		identity: deps.Identity,
		logger:   deps.Logger,
		now:      deps.Now,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error) {
	// 1. 仅 active 账号可登录
	user, err := s.repo.User.GetActiveByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 二次验证：有登记图片时要求走人脸登录
	if user.Enable2Verification {
		count, err := s.repo.Image.CountByUsername(ctx, user.Username)
		if err != nil {
			s.logger.Error("统计用户图片失败", zap.Error(err))
			return nil, err
		}
		if count > 0 {
			return &LoginResult{TwoFactorRequired: true}, nil
		}
	}

	// 4. 复用或签发 Token
	token, err := s.currentToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tokenResponse(token)}, nil
}

func (s *authService) LoginByFace(ctx context.Context, username string, face identity.File) (*dto.TokenResponse, error) {
	if err := s.identity.Verify(ctx, username, face); err != nil {
		if !errors.Is(err, identity.ErrNotIdentified) {
			s.logger.Warn("人脸识别调用失败", zap.String("username", username), zap.Error(err))
		}
		return nil, ErrFaceNotIdentified
	}

	user, err := s.repo.User.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFaceNotIdentified
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	token, err := s.currentToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return tokenResponse(token), nil
}

// currentToken 返回未过期的 Token，没有则清理旧记录后重新签发
func (s *authService) currentToken(ctx context.Context, user *model.UserAccount) (*model.UserToken, error) {
	existing, err := s.repo.Token.GetUnexpired(ctx, user.Username, s.now())
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询 Token 失败", zap.Error(err))
		return nil, err
	}

	var issued *model.UserToken
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Token.DeleteByUsername(ctx, user.Username); err != nil {
			return err
		}
		issued, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		s.logger.Error("签发 Token 失败", zap.String("username", user.Username), zap.Error(err))
		return nil, err
	}
	return issued, nil
}

func (s *authService) GenerateToken(ctx context.Context, user *model.UserAccount) (*model.UserToken, error) {
	return s.issue(ctx, s.repo, user)
}

func (s *authService) issue(ctx context.Context, repo *repository.Repository, user *model.UserAccount) (*model.UserToken, error) {
	expiredAt := s.now().Add(s.cfg.Auth.TokenTTL)
	signed, err := s.jwtMgr.Generate(jwt.Claims{
		UserID:     user.ID,
		Username:   user.Username,
		Department: user.DepartmentName(),
		Role:       user.RoleName(),
		Firstname:  user.Firstname,
		Lastname:   user.Lastname,
		Middlename: user.MiddlenameValue(),
		Email:      user.Email,
		ExpiredAt:  expiredAt,
	})
	if err != nil {
		return nil, err
	}

	token := &model.UserToken{
		Username:  user.Username,
		Token:     signed,
		ExpiredAt: expiredAt,
	}
	if err := repo.Token.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	// 1. 签名与结构
	claims, err := s.jwtMgr.Parse(token)
	if err != nil {
		return nil, pkgerrors.Forbidden(err.Error())
	}

	// 2. 库中记录
	stored, err := s.repo.Token.GetLatest(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Forbidden(msgUserNotExist)
		}
		s.logger.Error("查询 Token 失败", zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}

	// 3. 先判过期，再比对字符串；以第一个失败项为准
	msg := ""
	switch {
	case stored.ExpiredAt.Before(s.now()):
		msg = msgTokenExpired
	case stored.Token != token:
		msg = msgUserNotExist
	}
	if msg != "" {
		if err := s.repo.Token.Delete(ctx, stored.ID); err != nil {
			s.logger.Error("删除失效 Token 失败", zap.Uint("id", stored.ID), zap.Error(err))
		}
		return nil, pkgerrors.Forbidden(msg)
	}

	return claims, nil
}

func (s *authService) Logout(ctx context.Context, username string) error {
	if err := s.repo.Token.DeleteByUsername(ctx, username); err != nil {
		s.logger.Error("删除 Token 失败", zap.String("username", username), zap.Error(err))
		return err
	}
	return nil
}

func tokenResponse(t *model.UserToken) *dto.TokenResponse {
	return &dto.TokenResponse{
		Username:  t.Username,
		Token:     t.Token,
		ExpiredAt: t.ExpiredAt,
		Created:   t.Created,
	}
}
