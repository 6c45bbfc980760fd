package service

import (
	"context"
	"errors"
	"math/rand/v2"
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
	"github.com/hieplh/ata-sample-webapp/pkg/storage"
)

// ── 激活流程提示信息 ──

const (
	msgActivationUserNotFound = "User not found"
	msgOTPCancelled           = "Otp has been cancelled"
	msgOTPExpired             = "Otp has been expired"
	msgOTPMismatch            = "Otp does not match"
)

// RegistrationService 注册与激活
//
// 状态流转：
//   - 账号 suspend → active
//   - OTP pending → active | expired | cancelled
type RegistrationService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) error
	ResendEmail(ctx context.Context, username string) error
	Activate(ctx context.Context, username string, otp int) error
}

type registrationService struct {
	cfg      *config.Config
	repo     *repository.Repository
	images   *storage.ImageStore
	identity IdentityClient
	mailer   ActivationMailer
	tasks    TaskRunner
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistrationService 创建 RegistrationService 实例
func NewRegistrationService(deps Dependencies) RegistrationService {
	return &registrationService{
		cfg:      deps.Config,
		repo:     deps.Repo,
		images:   deps.Images,
		identity: deps.Identity,
		mailer:   deps.Mailer,
		tasks:    deps.Tasks,
		logger:   deps.Logger,
		now:      deps.Now,
	}
}

// newOTP 四位数验证码 1000-9999
func newOTP() int {
	return 1000 + rand.IntN(9000)
}

func (s *registrationService) Register(ctx context.Context, req *dto.RegisterRequest) error {
	// 1. 先解码图片，格式错误直接返回
	decoded := make([]*storage.Image, 0, len(req.Images))
	for _, raw := range req.Images {
		img, err := storage.ParseDataURI(raw)
		if err != nil {
			return pkgerrors.Domain(err)
		}
		decoded = append(decoded, img)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码加密失败", zap.Error(err))
		return pkgerrors.Internal(err)
	}

	department := req.Department
	if department == nil || *department == "" {
		department = &s.cfg.Registration.DefaultDepartment
	}
	role := req.Role
	if role == nil || *role == "" {
		role = &s.cfg.Registration.DefaultRole
	}

	user := &model.UserAccount{
		Username:            req.Username,
		Password:            string(hashed),
		Department:          department,
		Role:                role,
		LineManager:         req.LineManager,
		Firstname:           req.Firstname,
		Middlename:          req.Middlename,
		Lastname:            req.Lastname,
		Gender:              req.Gender,
		Email:               req.Email,
		Status:              model.UserStatusSuspend,
		Identity:            req.Identity,
		IdentityType:        model.IdentityType(req.IdentityType),
		Enable2Verification: req.Enable2Verification,
	}
	activation := &model.ActiveUser{
		Username:  req.Username,
		OTP:       newOTP(),
		Status:    model.ActiveUserPending,
		ExpiredAt: s.now().Add(s.cfg.Activation.OTPTTL),
		Attempts:  1,
	}

	// 2. 账号、OTP、图片在同一事务中写入
	var written []string
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		if err := tx.ActiveUser.Create(ctx, activation); err != nil {
			return err
		}
		for _, img := range decoded {
			filename, err := s.images.Save(user.Username, img)
			if err != nil {
				return err
			}
			written = append(written, filename)

			ext := img.Ext
			if err := tx.Image.Create(ctx, &model.UserImage{
				Username:  user.Username,
				Image:     filename,
				ImageType: &ext,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// 回滚后清理已写入的文件
		for _, filename := range written {
			if rmErr := s.images.Delete(user.Username, filename); rmErr != nil {
				s.logger.Warn("清理图片失败", zap.String("file", filename), zap.Error(rmErr))
			}
		}
		s.logger.Warn("注册失败", zap.String("username", req.Username), zap.Error(err))
		return pkgerrors.Domain(err)
	}

	// 3. 提交后异步发送激活邮件
	s.sendActivation(user.Email, user.Username, activation.OTP)
	return nil
}

func (s *registrationService) ResendEmail(ctx context.Context, username string) error {
	user, err := s.repo.User.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.DomainMsg(msgActivationUserNotFound)
		}
		return pkgerrors.Internal(err)
	}

	activation, err := s.repo.ActiveUser.GetNotActive(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.DomainMsg(msgActivationUserNotFound)
		}
		return pkgerrors.Internal(err)
	}

	activation.OTP = newOTP()
	activation.Status = model.ActiveUserPending
	activation.Attempts = 1
	activation.ExpiredAt = s.now().Add(s.cfg.Activation.OTPTTL)
	if err := s.repo.ActiveUser.Update(ctx, activation); err != nil {
		s.logger.Error("更新 OTP 失败", zap.String("username", username), zap.Error(err))
		return pkgerrors.Domain(err)
	}

	s.sendActivation(user.Email, user.Username, activation.OTP)
	return nil
}

func (s *registrationService) Activate(ctx context.Context, username string, otp int) error {
	var failure string
	var user *model.UserAccount

	// 失败时的状态变化同样需要提交
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		activation, err := tx.ActiveUser.GetPending(ctx, username)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				failure = msgActivationUserNotFound
				return nil
			}
			return err
		}

		switch {
		case activation.Attempts > s.cfg.Activation.MaxAttempts:
			activation.Status = model.ActiveUserCancelled
			failure = msgOTPCancelled
		case activation.ExpiredAt.Before(s.now()):
			activation.Status = model.ActiveUserExpired
			activation.Attempts++
			failure = msgOTPExpired
		case activation.OTP != otp:
			activation.Attempts++
			failure = msgOTPMismatch
		default:
			activation.Status = model.ActiveUserActive
		}

		if err := tx.ActiveUser.Update(ctx, activation); err != nil {
			return err
		}
		if failure != "" {
			return nil
		}

		if err := tx.User.UpdateStatus(ctx, username, model.UserStatusActive); err != nil {
			return err
		}
		user, err = tx.User.GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		s.logger.Error("激活账号失败", zap.String("username", username), zap.Error(err))
		return pkgerrors.Domain(err)
	}
	if failure != "" {
		return pkgerrors.DomainMsg(failure)
	}

	// 向人脸识别服务登记已上传的图片
	submit(s.tasks, s.logger, "identity.register", func(ctx context.Context) error {
		return s.registerIdentity(ctx, user)
	})
	return nil
}

func (s *registrationService) registerIdentity(ctx context.Context, user *model.UserAccount) error {
	images, err := s.repo.Image.ListByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	files, err := loadFiles(s.images, images)
	if err != nil {
		return err
	}
	return s.identity.Register(ctx, user.Username, user, files)
}

func (s *registrationService) sendActivation(email, username string, otp int) {
	submit(s.tasks, s.logger, "mail.activation", func(ctx context.Context) error {
		return s.mailer.SendActivation(ctx, email, username, otp)
	})
}

// loadFiles 读取图片文件供上传
func loadFiles(store *storage.ImageStore, images []model.UserImage) ([]identity.File, error) {
	files := make([]identity.File, 0, len(images))
	for i := range images {
		data, err := store.Read(images[i].Username, images[i].Image)
		if err != nil {
			return nil, err
		}
		files = append(files, identity.File{
			Name:        images[i].Image,
			ContentType: images[i].ContentType(),
			Data:        data,
		})
	}
	return files, nil
}
