package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hieplh/ata-sample-webapp/internal/model"
	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
)

// FormScope 列表维度
type FormScope string

const (
	ScopeCreated    FormScope = "created"
	ScopeAssigned   FormScope = "assigned"
	ScopeDepartment FormScope = "department"
)

// FormFilter 列表过滤条件
// Value 为用户名（created / assigned）或部门名（department）
type FormFilter struct {
	Scope  FormScope
	Value  string
	Status model.FormStatus
}

func (f FormFilter) apply(db *gorm.DB) *gorm.DB {
	switch f.Scope {
	case ScopeAssigned:
		db = db.Where("assigned_user = ?", f.Value)
	case ScopeDepartment:
		db = db.Where("department = ?", f.Value)
	default:
		db = db.Where("created_user = ?", f.Value)
	}
	if f.Status != "" {
		db = db.Where("form_status = ?", f.Status)
	}
	return db
}

// FormRepository 表单数据访问接口
type FormRepository interface {
	Create(ctx context.Context, form *model.Form) error
	CreateDetails(ctx context.Context, details []model.FormDetail) error
	GetByID(ctx context.Context, id uint) (*model.Form, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.Form, error)
	ListDetails(ctx context.Context, formID uint) ([]model.FormDetail, error)
	DeleteDetails(ctx context.Context, formID uint) error
	// Update 按 version 更新表头，版本不一致返回 ErrOptimisticLock
	Update(ctx context.Context, form *model.Form) error
	UpdateStatus(ctx context.Context, ids []uint, status model.FormStatus) (int64, error)
	List(ctx context.Context, filter FormFilter, offset, limit int) ([]model.Form, int64, error)
	ListWithDetails(ctx context.Context, filter FormFilter) ([]model.Form, error)
	CountByStatus(ctx context.Context, filter FormFilter) (map[model.FormStatus]int64, error)
}

// formRepo FormRepository 的 GORM 实现
type formRepo struct {
	db *gorm.DB
}

// NewFormRepo 创建 FormRepository 实例
func NewFormRepo(db *gorm.DB) FormRepository {
	return &formRepo{db: db}
}

func (r *formRepo) Create(ctx context.Context, form *model.Form) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(form).Error
}

func (r *formRepo) CreateDetails(ctx context.Context, details []model.FormDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

func (r *formRepo) GetByID(ctx context.Context, id uint) (*model.Form, error) {
	var form model.Form
	err := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("FormReason").
		Where("id = ?", id).
		First(&form).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *formRepo) ListByIDs(ctx context.Context, ids []uint) ([]model.Form, error) {
	var forms []model.Form
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&forms).Error
	return forms, err
}

func (r *formRepo) ListDetails(ctx context.Context, formID uint) ([]model.FormDetail, error) {
	var details []model.FormDetail
	err := r.db.WithContext(ctx).
		Where("form = ?", formID).
		Order("id ASC").
		Find(&details).Error
	return details, err
}

func (r *formRepo) DeleteDetails(ctx context.Context, formID uint) error {
	return r.db.WithContext(ctx).
		Where("form = ?", formID).
		Delete(&model.FormDetail{}).Error
}

func (r *formRepo) Update(ctx context.Context, form *model.Form) error {
	oldVersion := form.Version
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.Form{}).
		Where("id = ? AND version = ?", form.ID, oldVersion).
		Updates(map[string]interface{}{
			"form_status":   form.FormStatus,
			"form_type":     form.FormType,
			"reason":        form.Reason,
			"productivity":  form.Productivity,
			"department":    form.Department,
			"role":          form.Role,
			"assigned_user": form.AssignedUser,
			"description":   form.Description,
			"note":          form.Note,
			"version":       oldVersion + 1,
			"last_updated":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	form.Version = oldVersion + 1
	form.LastUpdated = now
	return nil
}

// UpdateStatus 批量修改状态并递增版本
func (r *formRepo) UpdateStatus(ctx context.Context, ids []uint, status model.FormStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Form{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"form_status":  status,
			"version":      gorm.Expr("version + 1"),
			"last_updated": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// List 最新创建的在前，id 作为次序
func (r *formRepo) List(ctx context.Context, filter FormFilter, offset, limit int) ([]model.Form, int64, error) {
	var forms []model.Form
	var total int64

	db := filter.apply(r.db.WithContext(ctx).Model(&model.Form{}))

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&forms).Error; err != nil {
		return nil, 0, err
	}

	return forms, total, nil
}

func (r *formRepo) ListWithDetails(ctx context.Context, filter FormFilter) ([]model.Form, error) {
	var forms []model.Form
	err := filter.apply(r.db.WithContext(ctx).Model(&model.Form{})).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("FormReason").
		Order("created DESC").Order("id DESC").
		Find(&forms).Error
	return forms, err
}

func (r *formRepo) CountByStatus(ctx context.Context, filter FormFilter) (map[model.FormStatus]int64, error) {
	var rows []struct {
		FormStatus model.FormStatus
		N          int64
	}
	filter.Status = ""
	err := filter.apply(r.db.WithContext(ctx).Model(&model.Form{})).
		Select("form_status, COUNT(*) AS n").
		Group("form_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[model.FormStatus]int64, len(rows))
	for _, row := range rows {
		out[row.FormStatus] = row.N
	}
	return out, nil
}

// ── 表单原因 ──

// FormReasonRepository 表单原因数据访问接口
type FormReasonRepository interface {
	GetByID(ctx context.Context, id uint) (*model.FormReason, error)
	List(ctx context.Context, formType model.FormType) ([]model.FormReason, error)
}

type formReasonRepo struct {
	db *gorm.DB
}

// NewFormReasonRepo 创建 FormReasonRepository 实例
func NewFormReasonRepo(db *gorm.DB) FormReasonRepository {
	return &formReasonRepo{db: db}
}

func (r *formReasonRepo) GetByID(ctx context.Context, id uint) (*model.FormReason, error) {
	var reason model.FormReason
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&reason).Error
	if err != nil {
		return nil, err
	}
	return &reason, nil
}

// List formType 为空时返回全部
func (r *formReasonRepo) List(ctx context.Context, formType model.FormType) ([]model.FormReason, error) {
	var reasons []model.FormReason
	db := r.db.WithContext(ctx)
	if formType != "" {
		db = db.Where("form_type = ?", formType)
	}
	err := db.Order("id ASC").Find(&reasons).Error
	return reasons, err
}
