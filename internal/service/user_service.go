package service

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/model"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
	"github.com/hieplh/ata-sample-webapp/pkg/identity"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
	"github.com/hieplh/ata-sample-webapp/pkg/storage"
)

var (
	ErrUserNotFound  = errors.New("User not found")
	ErrImageNotFound = errors.New("Image not found")
	ErrImageNotOwned = errors.New("Image does not belong to current user")

	// ErrUsernameImmutable 用户名关联图片目录、Token 与人脸身份，不允许修改
	ErrUsernameImmutable = errors.New("Username cannot be changed")
)

// stagedImage 覆盖写入的暂存文件，提交后替换原文件
type stagedImage struct {
	staged   string
	filename string
}

var emailPattern = regexp.MustCompile(`^[\w.-]+@[a-zA-Z0-9-]+\.[a-zA-Z]{2,}$`)

// UserService 用户业务接口
type UserService interface {
	Me(ctx context.Context, userID uint) (*model.UserAccount, error)
	Images(ctx context.Context, username string) ([]dto.UserImageResponse, error)
	// IdentityImages 人脸识别服务登记的图片，服务不可用时返回空列表
	IdentityImages(ctx context.Context, username string) []map[string]interface{}
	// Lookup data 可以是数字 id、邮箱或证件号；未找到返回 nil
	Lookup(ctx context.Context, data string) (*model.UserAccount, error)
	List(ctx context.Context) ([]model.UserAccount, error)
	Update(ctx context.Context, caller *jwt.Claims, req *dto.UpdateUserRequest) (*model.UserAccount, error)
	Delete(ctx context.Context, id uint) error
}

type userService struct {
	repo     *repository.Repository
	images   *storage.ImageStore
	identity IdentityClient
	tasks    TaskRunner
	logger   *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(deps Dependencies) UserService {
	return &userService{
		repo:     deps.Repo,
		images:   deps.Images,
		identity: deps.Identity,
		tasks:    deps.Tasks,
		logger:   deps.Logger,
	}
}

func (s *userService) Me(ctx context.Context, userID uint) (*model.UserAccount, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Images(ctx context.Context, username string) ([]dto.UserImageResponse, error) {
	images, err := s.repo.Image.ListByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserImageResponse, 0, len(images))
	for _, img := range images {
		content, err := s.images.ReadBase64(img.Username, img.Image)
		if err != nil {
			s.logger.Error("读取图片失败", zap.String("file", img.Image), zap.Error(err))
			return nil, err
		}
		out = append(out, dto.UserImageResponse{
			ID:        img.ID,
			Username:  img.Username,
			Image:     content,
			ImageType: img.ImageType,
			Created:   img.Created,
		})
	}
	return out, nil
}

func (s *userService) IdentityImages(ctx context.Context, username string) []map[string]interface{} {
	images, err := s.identity.ListImages(ctx, username)
	if err != nil {
		s.logger.Warn("查询人脸登记图片失败", zap.String("username", username), zap.Error(err))
		return []map[string]interface{}{}
	}
	if images == nil {
		return []map[string]interface{}{}
	}
	return images
}

func (s *userService) Lookup(ctx context.Context, data string) (*model.UserAccount, error) {
	var (
		id       *uint
		email    string
		identity string
	)
	if n, err := strconv.ParseUint(data, 10, 64); err == nil {
		v := uint(n)
		id = &v
	} else if emailPattern.MatchString(data) {
		email = data
	} else {
		identity = data
	}

	user, err := s.repo.User.Lookup(ctx, id, email, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]model.UserAccount, error) {
	return s.repo.User.List(ctx)
}

func (s *userService) Update(ctx context.Context, caller *jwt.Claims, req *dto.UpdateUserRequest) (*model.UserAccount, error) {
	// 先解码图片
	decoded := make([]*storage.Image, len(req.UpdatedImages))
	for i, u := range req.UpdatedImages {
		img, err := storage.ParseDataURI(u.Content)
		if err != nil {
			return nil, pkgerrors.Domain(err)
		}
		decoded[i] = img
	}

	var (
		user     *model.UserAccount
		owner    string
		created  []string
		staged   []stagedImage
		removed  []string
		payloads []identity.ImageUpdate
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		user, err = tx.User.GetByID(ctx, caller.UserID)
		if err != nil {
			return err
		}
		owner = user.Username

		if err := applyUserUpdate(user, req); err != nil {
			return err
		}
		if err := tx.User.Update(ctx, user); err != nil {
			return err
		}

		// 新增或覆盖图片
		for i, u := range req.UpdatedImages {
			img := decoded[i]
			var filename string
			if u.ID != nil {
				existing, err := ownedImage(ctx, tx, *u.ID, owner)
				if err != nil {
					return err
				}
				filename = existing.Image
				tmp, err := s.images.Stage(owner, filename, img.Data)
				if err != nil {
					return err
				}
				staged = append(staged, stagedImage{staged: tmp, filename: filename})
			} else {
				filename, err = s.images.Save(owner, img)
				if err != nil {
					return err
				}
				created = append(created, filename)
				ext := img.Ext
				if err := tx.Image.Create(ctx, &model.UserImage{
					Username:  owner,
					Image:     filename,
					ImageType: &ext,
				}); err != nil {
					return err
				}
			}
			payloads = append(payloads, identity.ImageUpdate{
				ImageOldID: u.ID,
				ImageName:  filename,
				Image:      base64.StdEncoding.EncodeToString(img.Data),
			})
		}

		// 删除图片，文件在提交后移除
		for _, id := range req.DeletedImages {
			existing, err := ownedImage(ctx, tx, id, owner)
			if err != nil {
				return err
			}
			if err := tx.Image.Delete(ctx, existing.ID); err != nil {
				return err
			}
			removed = append(removed, existing.Image)
		}
		return nil
	})
	if err != nil {
		for _, filename := range created {
			_ = s.images.Delete(owner, filename)
		}
		for _, st := range staged {
			_ = s.images.Discard(owner, st.staged)
		}
		if _, ok := pkgerrors.As(err); ok {
			return nil, err
		}
		s.logger.Warn("更新用户失败", zap.Uint("user_id", caller.UserID), zap.Error(err))
		return nil, pkgerrors.Domain(err)
	}

	for _, st := range staged {
		if err := s.images.Commit(owner, st.staged, st.filename); err != nil {
			s.logger.Error("替换图片文件失败", zap.String("file", st.filename), zap.Error(err))
		}
	}
	for _, filename := range removed {
		if err := s.images.Delete(owner, filename); err != nil {
			s.logger.Warn("删除图片文件失败", zap.String("file", filename), zap.Error(err))
		}
	}

	if len(payloads) > 0 {
		submit(s.tasks, s.logger, "identity.update", func(ctx context.Context) error {
			return s.identity.Update(ctx, owner, payloads)
		})
	}
	return user, nil
}

// applyUserUpdate 逐字段映射，nil 字段保持原值
func applyUserUpdate(user *model.UserAccount, req *dto.UpdateUserRequest) error {
	if req.Username != nil && *req.Username != user.Username {
		return pkgerrors.Domain(ErrUsernameImmutable)
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.Password = string(hashed)
	}
	if req.Department != nil {
		user.Department = req.Department
	}
	if req.Role != nil {
		user.Role = req.Role
	}
	if req.LineManager != nil {
		user.LineManager = req.LineManager
	}
	if req.Firstname != nil {
		user.Firstname = *req.Firstname
	}
	if req.Middlename != nil {
		user.Middlename = req.Middlename
	}
	if req.Lastname != nil {
		user.Lastname = *req.Lastname
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Status != nil {
		user.Status = model.UserStatus(*req.Status)
	}
	if req.Identity != nil {
		user.Identity = *req.Identity
	}
	if req.IdentityType != nil {
		user.IdentityType = model.IdentityType(*req.IdentityType)
	}
	if req.Enable2Verification != nil {
		user.Enable2Verification = *req.Enable2Verification
	}
	return nil
}

func ownedImage(ctx context.Context, tx *repository.Repository, id uint, owner string) (*model.UserImage, error) {
	img, err := tx.Image.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Domain(ErrImageNotFound)
		}
		return nil, err
	}
	if img.Username != owner {
		return nil, pkgerrors.ForbiddenErr(ErrImageNotOwned)
	}
	return img, nil
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	var (
		user   *model.UserAccount
		images []model.UserImage
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		user, err = tx.User.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.User.UpdateStatus(ctx, user.Username, model.UserStatusDeleted); err != nil {
			return err
		}
		images, err = tx.Image.ListByUsername(ctx, user.Username)
		if err != nil {
			return err
		}
		if err := tx.Image.DeleteByUsername(ctx, user.Username); err != nil {
			return err
		}
		return tx.Token.DeleteByUsername(ctx, user.Username)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Domain(ErrUserNotFound)
		}
		s.logger.Error("删除用户失败", zap.Uint("user_id", id), zap.Error(err))
		return pkgerrors.Domain(err)
	}

	for _, img := range images {
		if err := s.images.Delete(img.Username, img.Image); err != nil {
			s.logger.Warn("删除图片文件失败", zap.String("file", img.Image), zap.Error(err))
		}
	}

	username := user.Username
	submit(s.tasks, s.logger, "identity.delete", func(ctx context.Context) error {
		return s.identity.Delete(ctx, username)
	})
	return nil
}
