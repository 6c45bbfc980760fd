package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hieplh/ata-sample-webapp/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.UserAccount) error
	GetByID(ctx context.Context, id uint) (*model.UserAccount, error)
	GetByUsername(ctx context.Context, username string) (*model.UserAccount, error)
	GetActiveByUsername(ctx context.Context, username string) (*model.UserAccount, error)
	// Lookup 按 id / email / identity 任一匹配
	Lookup(ctx context.Context, id *uint, email, identity string) (*model.UserAccount, error)
	List(ctx context.Context) ([]model.UserAccount, error)
	Update(ctx context.Context, user *model.UserAccount) error
	UpdateStatus(ctx context.Context, username string, status model.UserStatus) error
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.UserAccount) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id uint) (*model.UserAccount, error) {
	var user model.UserAccount
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.UserAccount, error) {
	var user model.UserAccount
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetActiveByUsername(ctx context.Context, username string) (*model.UserAccount, error) {
	var user model.UserAccount
	err := r.db.WithContext(ctx).
		Where("username = ? AND status = ?", username, model.UserStatusActive).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Lookup(ctx context.Context, id *uint, email, identity string) (*model.UserAccount, error) {
	q := r.db.WithContext(ctx).Model(&model.UserAccount{})
	switch {
	case id != nil:
		q = q.Where("id = ?", *id)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		q = q.Where("identity = ?", identity)
	}

	var user model.UserAccount
	if err := q.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List 按名字倒序
func (r *userRepo) List(ctx context.Context) ([]model.UserAccount, error) {
	var users []model.UserAccount
	err := r.db.WithContext(ctx).
		Order("firstname DESC").
		Order("id ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) Update(ctx context.Context, user *model.UserAccount) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepo) UpdateStatus(ctx context.Context, username string, status model.UserStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.UserAccount{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"status":       status,
			"last_updated": time.Now().UTC(),
		}).Error
}

// ── 激活记录 ──

// ActiveUserRepository 激活记录数据访问接口
type ActiveUserRepository interface {
	Create(ctx context.Context, au *model.ActiveUser) error
	GetPending(ctx context.Context, username string) (*model.ActiveUser, error)
	GetNotActive(ctx context.Context, username string) (*model.ActiveUser, error)
	Update(ctx context.Context, au *model.ActiveUser) error
}

type activeUserRepo struct {
	db *gorm.DB
}

// NewActiveUserRepo 创建 ActiveUserRepository 实例
func NewActiveUserRepo(db *gorm.DB) ActiveUserRepository {
	return &activeUserRepo{db: db}
}

func (r *activeUserRepo) Create(ctx context.Context, au *model.ActiveUser) error {
	return r.db.WithContext(ctx).Create(au).Error
}

func (r *activeUserRepo) GetPending(ctx context.Context, username string) (*model.ActiveUser, error) {
	var au model.ActiveUser
	err := r.db.WithContext(ctx).
		Where("username = ? AND status = ?", username, model.ActiveUserPending).
		Order("id DESC").
		First(&au).Error
	if err != nil {
		return nil, err
	}
	return &au, nil
}

func (r *activeUserRepo) GetNotActive(ctx context.Context, username string) (*model.ActiveUser, error) {
	var au model.ActiveUser
	err := r.db.WithContext(ctx).
		Where("username = ? AND status <> ?", username, model.ActiveUserActive).
		Order("id DESC").
		First(&au).Error
	if err != nil {
		return nil, err
	}
	return &au, nil
}

func (r *activeUserRepo) Update(ctx context.Context, au *model.ActiveUser) error {
	return r.db.WithContext(ctx).Save(au).Error
}

// ── Token ──

// TokenRepository 登录 Token 数据访问接口
type TokenRepository interface {
	Create(ctx context.Context, token *model.UserToken) error
	// GetLatest 最近签发的一条
	GetLatest(ctx context.Context, username string) (*model.UserToken, error)
	GetUnexpired(ctx context.Context, username string, now time.Time) (*model.UserToken, error)
	Delete(ctx context.Context, id uint) error
	DeleteByUsername(ctx context.Context, username string) error
}

type tokenRepo struct {
	db *gorm.DB
}

// NewTokenRepo 创建 TokenRepository 实例
func NewTokenRepo(db *gorm.DB) TokenRepository {
	return &tokenRepo{db: db}
}

func (r *tokenRepo) Create(ctx context.Context, token *model.UserToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepo) GetLatest(ctx context.Context, username string) (*model.UserToken, error) {
	var t model.UserToken
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("id DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepo) GetUnexpired(ctx context.Context, username string, now time.Time) (*model.UserToken, error) {
	var t model.UserToken
	err := r.db.WithContext(ctx).
		Where("username = ? AND expired_at > ?", username, now).
		Order("id DESC").
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.UserToken{}).Error
}

func (r *tokenRepo) DeleteByUsername(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&model.UserToken{}).Error
}

// ── 图片 ──

// ImageRepository 用户图片数据访问接口
type ImageRepository interface {
	Create(ctx context.Context, img *model.UserImage) error
	GetByID(ctx context.Context, id uint) (*model.UserImage, error)
	ListByUsername(ctx context.Context, username string) ([]model.UserImage, error)
	CountByUsername(ctx context.Context, username string) (int64, error)
	Delete(ctx context.Context, id uint) error
	DeleteByUsername(ctx context.Context, username string) error
}

type imageRepo struct {
	db *gorm.DB
}

// NewImageRepo 创建 ImageRepository 实例
func NewImageRepo(db *gorm.DB) ImageRepository {
	return &imageRepo{db: db}
}

func (r *imageRepo) Create(ctx context.Context, img *model.UserImage) error {
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *imageRepo) GetByID(ctx context.Context, id uint) (*model.UserImage, error) {
	var img model.UserImage
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&img).Error
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (r *imageRepo) ListByUsername(ctx context.Context, username string) ([]model.UserImage, error) {
	var imgs []model.UserImage
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("id ASC").
		Find(&imgs).Error
	return imgs, err
}

func (r *imageRepo) CountByUsername(ctx context.Context, username string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.UserImage{}).
		Where("username = ?", username).
		Count(&n).Error
	return n, err
}

func (r *imageRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.UserImage{}).Error
}

func (r *imageRepo) DeleteByUsername(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&model.UserImage{}).Error
}
