package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hieplh/ata-sample-webapp/config"
	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/model"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
	"github.com/hieplh/ata-sample-webapp/pkg/identity"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
)

// ── 表单模块业务错误 ──

var (
	ErrFormNotFound       = errors.New("Form not found")
	ErrFormReasonNotFound = errors.New("Form reason not found")
	ErrFormNotEditable    = errors.New("Only the creator or the assignee can update this form")
	ErrFormNotAssigned    = errors.New("Form is not assigned to current user")
	ErrInvalidPeriod      = errors.New("Detail period ends before it starts")
)

// 角色名包含这些关键词时由总监审批
var directorKeywords = []string{"lead", "leader", "head"}

// FormService 表单业务接口
//
// 状态：pending → approved | cancelled，仅被指派人可修改状态
// 阶段在创建时确定，之后不再变化
type FormService interface {
	Create(ctx context.Context, caller *jwt.Claims, req *dto.CreateFormRequest) (*model.Form, error)
	Update(ctx context.Context, caller *jwt.Claims, req *dto.UpdateFormRequest) (*model.Form, error)
	// Confirm 批量审批；face 在开启二次验证时必填
	Confirm(ctx context.Context, caller *jwt.Claims, req *dto.ConfirmFormRequest, face *identity.File) ([]model.Form, error)
	Get(ctx context.Context, id uint) (*model.Form, error)
	Details(ctx context.Context, id uint) ([]model.FormDetail, error)
	List(ctx context.Context, caller *jwt.Claims, scope repository.FormScope, req *dto.FormListRequest) ([]model.Form, int64, error)
	Count(ctx context.Context, caller *jwt.Claims) (*dto.FormCountResponse, error)
	Reasons(ctx context.Context, formType string) ([]model.FormReason, error)
	Types() []dto.FormTypeResponse
}

type formService struct {
	cfg      *config.Config
	repo     *repository.Repository
	identity IdentityClient
	logger   *zap.Logger
}

// NewFormService 创建 FormService 实例
func NewFormService(deps Dependencies) FormService {
	return &formService{
		cfg:      deps.Config,
		repo:     deps.Repo,
		identity: deps.Identity,
		logger:   deps.Logger,
	}
}

// phaseFor 审批阶段
func (s *formService) phaseFor(role string) model.FormPhase {
	if !s.cfg.Form.PhaseByRoleKeyword {
		return model.FormPhaseDirectorApproved
	}
	lower := strings.ToLower(role)
	for _, kw := range directorKeywords {
		if strings.Contains(lower, kw) {
			return model.FormPhaseDirectorApproved
		}
	}
	return model.FormPhaseDirectManagerApproved
}

// ════════════════════════════════════════
// Create
// ════════════════════════════════════════

func (s *formService) Create(ctx context.Context, caller *jwt.Claims, req *dto.CreateFormRequest) (*model.Form, error) {
	details, err := toDetails(req.Details)
	if err != nil {
		return nil, err
	}

	department := req.Department
	if department == "" {
		department = caller.Department
	}
	role := req.Role
	if role == "" {
		role = caller.Role
	}

	form := &model.Form{
		FormStatus:   model.FormStatusPending,
		FormPhase:    s.phaseFor(role),
		FormType:     model.FormType(req.FormType),
		Reason:       req.Reason,
		Productivity: model.FormProductivity(req.Productivity),
		Department:   department,
		Role:         role,
		CreatedUser:  caller.Username,
		AssignedUser: req.AssignedUser,
		Description:  req.Description,
		Note:         req.Note,
		Version:      1,
	}

	var created *model.Form
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		reason, err := tx.FormReason.GetByID(ctx, req.Reason)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Domain(ErrFormReasonNotFound)
			}
			return err
		}
		if form.Productivity == "" {
			form.Productivity = reason.Productivity
		}

		// 表头与明细同事务写入，明细失败则表头回滚
		if err := tx.Form.Create(ctx, form); err != nil {
			return err
		}
		for i := range details {
			details[i].Form = form.ID
		}
		if err := tx.Form.CreateDetails(ctx, details); err != nil {
			return err
		}

		created, err = tx.Form.GetByID(ctx, form.ID)
		return err
	})
	if err != nil {
		return nil, s.wrap("创建表单失败", err)
	}
	return created, nil
}

// ════════════════════════════════════════
// Update
// ════════════════════════════════════════

func (s *formService) Update(ctx context.Context, caller *jwt.Claims, req *dto.UpdateFormRequest) (*model.Form, error) {
	var details []model.FormDetail
	if len(req.Details) > 0 {
		var err error
		if details, err = toDetails(req.Details); err != nil {
			return nil, err
		}
	}

	var updated *model.Form
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		form, err := tx.Form.GetByID(ctx, req.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Domain(ErrFormNotFound)
			}
			return err
		}

		isAssignee := form.AssignedUser == caller.Username
		if form.CreatedUser != caller.Username && !isAssignee {
			return pkgerrors.ForbiddenErr(ErrFormNotEditable)
		}
		if req.Version != nil && *req.Version != form.Version {
			return pkgerrors.Conflict(pkgerrors.ErrOptimisticLock)
		}

		if req.Reason != 0 && req.Reason != form.Reason {
			if _, err := tx.FormReason.GetByID(ctx, req.Reason); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.Domain(ErrFormReasonNotFound)
				}
				return err
			}
		}

		applyFormUpdate(form, req, isAssignee)

		if err := tx.Form.Update(ctx, form); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return pkgerrors.Conflict(err)
			}
			return err
		}

		// 明细整体删除后重建
		if details != nil {
			if err := tx.Form.DeleteDetails(ctx, form.ID); err != nil {
				return err
			}
			for i := range details {
				details[i].Form = form.ID
			}
			if err := tx.Form.CreateDetails(ctx, details); err != nil {
				return err
			}
		}

		updated, err = tx.Form.GetByID(ctx, form.ID)
		return err
	})
	if err != nil {
		return nil, s.wrap("更新表单失败", err)
	}
	return updated, nil
}

// applyFormUpdate 非空字段覆盖，空字符串保持原值
func applyFormUpdate(form *model.Form, req *dto.UpdateFormRequest, isAssignee bool) {
	if req.FormType != "" {
		form.FormType = model.FormType(req.FormType)
	}
	if req.Department != "" {
		form.Department = req.Department
	}
	if req.Role != "" {
		form.Role = req.Role
	}
	if req.Reason != 0 {
		form.Reason = req.Reason
	}
	if req.Productivity != "" {
		form.Productivity = model.FormProductivity(req.Productivity)
	}
	if req.Description != "" {
		form.Description = &req.Description
	}
	if req.Note != "" {
		form.Note = &req.Note
	}
	if req.AssignedUser != "" {
		form.AssignedUser = req.AssignedUser
	}
	if req.FormStatus != "" && isAssignee {
		form.FormStatus = model.FormStatus(req.FormStatus)
	}
}

// ════════════════════════════════════════
// Confirm
// ════════════════════════════════════════

func (s *formService) Confirm(ctx context.Context, caller *jwt.Claims, req *dto.ConfirmFormRequest, face *identity.File) ([]model.Form, error) {
	user, err := s.repo.User.GetByUsername(ctx, caller.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Forbidden(msgUserNotExist)
		}
		return nil, err
	}

	// 开启二次验证时先做人脸识别
	if user.Enable2Verification {
		if face == nil {
			return nil, pkgerrors.ForbiddenErr(ErrFaceNotIdentified)
		}
		if err := s.identity.Verify(ctx, caller.Username, *face); err != nil {
			if !errors.Is(err, identity.ErrNotIdentified) {
				s.logger.Warn("人脸识别调用失败", zap.String("username", caller.Username), zap.Error(err))
			}
			return nil, pkgerrors.ForbiddenErr(ErrFaceNotIdentified)
		}
	}

	ids := uniqueIDs(req.FormIDs)
	status := model.FormStatus(req.FormStatus)

	var confirmed []model.Form
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		forms, err := tx.Form.ListByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(forms) != len(ids) {
			return pkgerrors.Domain(ErrFormNotFound)
		}
		for _, f := range forms {
			if f.AssignedUser != caller.Username {
				return pkgerrors.ForbiddenErr(ErrFormNotAssigned)
			}
		}

		if _, err := tx.Form.UpdateStatus(ctx, ids, status); err != nil {
			return err
		}
		confirmed, err = tx.Form.ListByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return nil, s.wrap("审批表单失败", err)
	}
	return confirmed, nil
}

// ════════════════════════════════════════
// 查询
// ════════════════════════════════════════

func (s *formService) Get(ctx context.Context, id uint) (*model.Form, error) {
	form, err := s.repo.Form.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Domain(ErrFormNotFound)
		}
		return nil, err
	}
	return form, nil
}

func (s *formService) Details(ctx context.Context, id uint) ([]model.FormDetail, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return form.Details, nil
}

func (s *formService) List(ctx context.Context, caller *jwt.Claims, scope repository.FormScope, req *dto.FormListRequest) ([]model.Form, int64, error) {
	filter := scopeFilter(caller, scope)
	filter.Status = model.FormStatus(req.Status)
	return s.repo.Form.List(ctx, filter, req.GetOffset(), req.GetPageSize())
}

func (s *formService) Count(ctx context.Context, caller *jwt.Claims) (*dto.FormCountResponse, error) {
	out := &dto.FormCountResponse{}
	targets := []struct {
		scope repository.FormScope
		dst   *dto.StatusCount
	}{
		{repository.ScopeCreated, &out.Created},
		{repository.ScopeAssigned, &out.Assigned},
		{repository.ScopeDepartment, &out.Department},
	}
	for _, t := range targets {
		counts, err := s.repo.Form.CountByStatus(ctx, scopeFilter(caller, t.scope))
		if err != nil {
			s.logger.Error("统计表单失败", zap.String("scope", string(t.scope)), zap.Error(err))
			return nil, err
		}
		t.dst.Pending = counts[model.FormStatusPending]
		t.dst.Approved = counts[model.FormStatusApproved]
		t.dst.Cancelled = counts[model.FormStatusCancelled]
		t.dst.Total = t.dst.Pending + t.dst.Approved + t.dst.Cancelled
	}
	return out, nil
}

func (s *formService) Reasons(ctx context.Context, formType string) ([]model.FormReason, error) {
	return s.repo.FormReason.List(ctx, model.FormType(formType))
}

func (s *formService) Types() []dto.FormTypeResponse {
	out := make([]dto.FormTypeResponse, 0, len(model.FormTypes))
	for _, t := range model.FormTypes {
		out = append(out, dto.FormTypeResponse{Name: string(t), Value: t.Display()})
	}
	return out
}

// ── 辅助函数 ──

// scopeFilter 按维度取当前用户名或部门
func scopeFilter(caller *jwt.Claims, scope repository.FormScope) repository.FormFilter {
	switch scope {
	case repository.ScopeDepartment:
		return repository.FormFilter{Scope: scope, Value: caller.Department}
	case repository.ScopeAssigned:
		return repository.FormFilter{Scope: scope, Value: caller.Username}
	default:
		return repository.FormFilter{Scope: repository.ScopeCreated, Value: caller.Username}
	}
}

func toDetails(reqs []dto.FormDetailRequest) ([]model.FormDetail, error) {
	details := make([]model.FormDetail, 0, len(reqs))
	for _, r := range reqs {
		fromTime, err := model.NormalizeClock(r.FromTime)
		if err != nil {
			return nil, pkgerrors.Validation(err.Error())
		}
		toTime, err := model.NormalizeClock(r.ToTime)
		if err != nil {
			return nil, pkgerrors.Validation(err.Error())
		}
		fromDate, err := model.ParseDate(r.FromDate)
		if err != nil {
			return nil, pkgerrors.Validation(err.Error())
		}
		toDate, err := model.ParseDate(r.ToDate)
		if err != nil {
			return nil, pkgerrors.Validation(err.Error())
		}
		if fromDate.String()+fromTime > toDate.String()+toTime {
			return nil, pkgerrors.Validation(ErrInvalidPeriod.Error())
		}
		details = append(details, model.FormDetail{
			FromTime: fromTime,
			ToTime:   toTime,
			FromDate: fromDate,
			ToDate:   toDate,
		})
	}
	return details, nil
}

func uniqueIDs(in []uint) []uint {
	seen := make(map[uint]struct{}, len(in))
	out := make([]uint, 0, len(in))
	for _, id := range in {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// wrap 业务错误原样返回，其余按数据库错误处理
func (s *formService) wrap(action string, err error) error {
	if _, ok := pkgerrors.As(err); ok {
		return err
	}
	s.logger.Error(action, zap.Error(err))
	return pkgerrors.Domain(err)
}
