package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/model"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
	"github.com/hieplh/ata-sample-webapp/pkg/identity"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
)

func detailReq(from, to string) dto.FormDetailRequest {
	return dto.FormDetailRequest{FromTime: "08:00", ToTime: "17:30:00", FromDate: from, ToDate: to}
}

func createForm(t *testing.T, env *testEnv, caller *jwt.Claims, assignee string, details ...dto.FormDetailRequest) *model.Form {
	t.Helper()
	if len(details) == 0 {
		details = []dto.FormDetailRequest{detailReq("2024-03-04", "2024-03-04")}
	}
	note := "original note"
	form, err := env.svc.Form.Create(context.Background(), caller, &dto.CreateFormRequest{
		FormType:     "leave_request",
		Reason:       1,
		Note:         &note,
		AssignedUser: assignee,
		Details:      details,
	})
	require.NoError(t, err)
	return form
}

func countRows(t *testing.T, env *testEnv, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(m).Count(&n).Error)
	return n
}

func detailIDs(details []model.FormDetail) []uint {
	ids := make([]uint, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
	}
	return ids
}

// ── Create ──

func TestFormService_Create_Defaults(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))

	form := createForm(t, env, alice, "boss",
		detailReq("2024-03-04", "2024-03-04"),
		detailReq("2024-03-05", "2024-03-06"),
	)

	assert.Equal(t, model.FormStatusPending, form.FormStatus)
	assert.Equal(t, model.FormPhaseDirectorApproved, form.FormPhase)
	assert.Equal(t, "alice", form.CreatedUser)
	assert.Equal(t, "IT Department", form.Department, "部门缺省取 Token")
	assert.Equal(t, "developer", form.Role)
	assert.Equal(t, model.Productivity, form.Productivity, "生产力缺省取原因配置")
	assert.Equal(t, 1, form.Version)
	require.Len(t, form.Details, 2)
	assert.Equal(t, "08:00:00", form.Details[0].FromTime)
	assert.Equal(t, "2024-03-06", form.Details[1].ToDate.String())
	require.NotNil(t, form.FormReason)
	assert.Equal(t, model.FormTypeLeaveRequest, form.FormReason.FormType)
}

func TestFormService_Create_PhaseByRoleKeyword(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Form.PhaseByRoleKeyword = true
	caller := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))

	testCases := []struct {
		role string
		want model.FormPhase
	}{
		{"Team Leader", model.FormPhaseDirectorApproved},
		{"HEAD of QA", model.FormPhaseDirectorApproved},
		{"developer", model.FormPhaseDirectManagerApproved},
	}
	for _, tc := range testCases {
		t.Run(tc.role, func(t *testing.T) {
			form, err := env.svc.Form.Create(context.Background(), caller, &dto.CreateFormRequest{
				FormType:     "absentee",
				Role:         tc.role,
				Reason:       3,
				AssignedUser: "boss",
				Details:      []dto.FormDetailRequest{detailReq("2024-03-04", "2024-03-04")},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, form.FormPhase)
		})
	}
}

func TestFormService_Create_UnknownReason(t *testing.T) {
	env := newTestEnv(t)
	caller := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))

	_, err := env.svc.Form.Create(context.Background(), caller, &dto.CreateFormRequest{
		FormType:     "leave_request",
		Reason:       999,
		AssignedUser: "boss",
		Details:      []dto.FormDetailRequest{detailReq("2024-03-04", "2024-03-04")},
	})
	assertBadRequest(t, err, ErrFormReasonNotFound.Error())
	assert.Zero(t, countRows(t, env, &model.Form{}))
}

func TestFormService_Create_InvalidPeriod(t *testing.T) {
	env := newTestEnv(t)
	caller := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))

	_, err := env.svc.Form.Create(context.Background(), caller, &dto.CreateFormRequest{
		FormType:     "leave_request",
		Reason:       1,
		AssignedUser: "boss",
		Details:      []dto.FormDetailRequest{detailReq("2024-03-05", "2024-03-04")},
	})
	assertBadRequest(t, err, ErrInvalidPeriod.Error())
}

func TestFormService_Create_DetailFailureRollsBackHeader(t *testing.T) {
	env := newTestEnv(t)
	caller := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))

	// 明细写入时注入失败
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:fail_detail", func(tx *gorm.DB) {
		if tx.Statement.Table == "form_detail" {
			_ = tx.AddError(errors.New("detail insert failed"))
		}
	}))

	_, err := env.svc.Form.Create(context.Background(), caller, &dto.CreateFormRequest{
		FormType:     "leave_request",
		Reason:       1,
		AssignedUser: "boss",
		Details:      []dto.FormDetailRequest{detailReq("2024-03-04", "2024-03-04")},
	})
	require.Error(t, err)
	assert.Zero(t, countRows(t, env, &model.Form{}), "表头应随明细一起回滚")
	assert.Zero(t, countRows(t, env, &model.FormDetail{}))
}

// ── Update ──

func TestFormService_Update_ReplacesDetailsAndKeepsEmptyFields(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	form := createForm(t, env, alice, "boss",
		detailReq("2024-03-04", "2024-03-04"),
		detailReq("2024-03-05", "2024-03-05"),
	)
	oldIDs := detailIDs(form.Details)

	updated, err := env.svc.Form.Update(context.Background(), alice, &dto.UpdateFormRequest{
		ID:          form.ID,
		Description: "new description",
		Note:        "",
		FormStatus:  "approved",
		Details:     []dto.FormDetailRequest{detailReq("2024-04-01", "2024-04-02")},
	})
	require.NoError(t, err)

	assert.Equal(t, "original note", *updated.Note, "空字符串保持原值")
	assert.Equal(t, "new description", *updated.Description)
	assert.Equal(t, model.FormStatusPending, updated.FormStatus, "创建人不能修改状态")
	assert.Equal(t, 2, updated.Version)

	require.Len(t, updated.Details, 1)
	for _, id := range oldIDs {
		assert.NotEqual(t, id, updated.Details[0].ID, "新明细 id 应与旧明细不重叠")
	}
	assert.EqualValues(t, 1, countRows(t, env, &model.FormDetail{}))
}

func TestFormService_Update_EmptyDetailsKeepsExisting(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	form := createForm(t, env, alice, "boss")

	updated, err := env.svc.Form.Update(context.Background(), alice, &dto.UpdateFormRequest{ID: form.ID, Note: "changed"})
	require.NoError(t, err)
	assert.Equal(t, detailIDs(form.Details), detailIDs(updated.Details))
	assert.Equal(t, "changed", *updated.Note)
}

func TestFormService_Update_AssigneeChangesStatus(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	boss := claimsOf(env.createUser(t, "boss", model.UserStatusActive, false))
	form := createForm(t, env, alice, "boss")

	updated, err := env.svc.Form.Update(context.Background(), boss, &dto.UpdateFormRequest{
		ID:         form.ID,
		FormStatus: "cancelled",
	})
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusCancelled, updated.FormStatus)
}

func TestFormService_Update_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	mallory := claimsOf(env.createUser(t, "mallory", model.UserStatusActive, false))
	form := createForm(t, env, alice, "boss")

	_, err := env.svc.Form.Update(context.Background(), mallory, &dto.UpdateFormRequest{ID: form.ID, Note: "hijack"})
	assertForbidden(t, err, ErrFormNotEditable.Error())
	assert.ErrorIs(t, err, ErrFormNotEditable)

	stored, err := env.svc.Form.Get(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, "original note", *stored.Note)
}

func TestFormService_Update_VersionConflict(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	form := createForm(t, env, alice, "boss")

	stale := form.Version
	_, err := env.svc.Form.Update(context.Background(), alice, &dto.UpdateFormRequest{ID: form.ID, Version: &stale, Note: "first"})
	require.NoError(t, err)

	_, err = env.svc.Form.Update(context.Background(), alice, &dto.UpdateFormRequest{ID: form.ID, Version: &stale, Note: "second"})
	appErr, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.Status())
	assert.ErrorIs(t, err, pkgerrors.ErrOptimisticLock)
}

func TestFormService_Update_NotFound(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))

	_, err := env.svc.Form.Update(context.Background(), alice, &dto.UpdateFormRequest{ID: 42})
	assertBadRequest(t, err, ErrFormNotFound.Error())
}

// ── Confirm ──

func TestFormService_Confirm(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	boss := claimsOf(env.createUser(t, "boss", model.UserStatusActive, false))
	f1 := createForm(t, env, alice, "boss")
	f2 := createForm(t, env, alice, "boss")

	forms, err := env.svc.Form.Confirm(context.Background(), boss, &dto.ConfirmFormRequest{
		FormIDs:    []uint{f1.ID, f2.ID, f1.ID},
		FormStatus: "approved",
	}, nil)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	for _, f := range forms {
		assert.Equal(t, model.FormStatusApproved, f.FormStatus)
		assert.Equal(t, 2, f.Version)
	}
}

func TestFormService_Confirm_NotAssignedChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	boss := claimsOf(env.createUser(t, "boss", model.UserStatusActive, false))
	mine := createForm(t, env, alice, "boss")
	other := createForm(t, env, alice, "someone-else")

	_, err := env.svc.Form.Confirm(context.Background(), boss, &dto.ConfirmFormRequest{
		FormIDs:    []uint{mine.ID, other.ID},
		FormStatus: "approved",
	}, nil)
	assertForbidden(t, err, ErrFormNotAssigned.Error())
	assert.ErrorIs(t, err, ErrFormNotAssigned)

	stored, err := env.svc.Form.Get(context.Background(), mine.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusPending, stored.FormStatus)
}

func TestFormService_Confirm_MissingForm(t *testing.T) {
	env := newTestEnv(t)
	boss := claimsOf(env.createUser(t, "boss", model.UserStatusActive, false))

	_, err := env.svc.Form.Confirm(context.Background(), boss, &dto.ConfirmFormRequest{
		FormIDs:    []uint{77},
		FormStatus: "cancelled",
	}, nil)
	assertBadRequest(t, err, ErrFormNotFound.Error())
}

func TestFormService_Confirm_TwoFactor(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	boss := claimsOf(env.createUser(t, "boss", model.UserStatusActive, true))
	form := createForm(t, env, alice, "boss")
	req := &dto.ConfirmFormRequest{FormIDs: []uint{form.ID}, FormStatus: "approved"}
	face := &identity.File{Name: "face.png", ContentType: "image/png", Data: []byte{1}}

	_, err := env.svc.Form.Confirm(context.Background(), boss, req, nil)
	assertForbidden(t, err, ErrFaceNotIdentified.Error())

	env.identity.recognized = "alice"
	_, err = env.svc.Form.Confirm(context.Background(), boss, req, face)
	assertForbidden(t, err, ErrFaceNotIdentified.Error())

	env.identity.recognized = "boss"
	forms, err := env.svc.Form.Confirm(context.Background(), boss, req, face)
	require.NoError(t, err)
	assert.Equal(t, model.FormStatusApproved, forms[0].FormStatus)
}

// ── 查询 ──

func TestFormService_List_Pagination(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	for i := 0; i < 5; i++ {
		createForm(t, env, alice, "boss")
	}

	page0, total, err := env.svc.Form.List(context.Background(), alice, repository.ScopeCreated, &dto.FormListRequest{Page: 0, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page0, 2)

	page1, total, err := env.svc.Form.List(context.Background(), alice, repository.ScopeCreated, &dto.FormListRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page1, 2)

	seen := map[uint]bool{}
	for _, f := range append(page0, page1...) {
		assert.False(t, seen[f.ID], "分页结果不应重叠")
		seen[f.ID] = true
	}
	// 最新的在前
	assert.Greater(t, page0[0].ID, page0[1].ID)
	assert.Greater(t, page0[1].ID, page1[0].ID)
}

func TestFormService_List_ScopesAndStatus(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	boss := claimsOf(env.createUser(t, "boss", model.UserStatusActive, false))
	f1 := createForm(t, env, alice, "boss")
	createForm(t, env, alice, "boss")
	createForm(t, env, boss, "alice")

	_, err := env.svc.Form.Confirm(context.Background(), boss, &dto.ConfirmFormRequest{FormIDs: []uint{f1.ID}, FormStatus: "approved"}, nil)
	require.NoError(t, err)

	_, total, err := env.svc.Form.List(context.Background(), boss, repository.ScopeAssigned, &dto.FormListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	approved, total, err := env.svc.Form.List(context.Background(), boss, repository.ScopeAssigned, &dto.FormListRequest{Status: "approved"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, f1.ID, approved[0].ID)

	_, total, err = env.svc.Form.List(context.Background(), alice, repository.ScopeDepartment, &dto.FormListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	counts, err := env.svc.Form.Count(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, dto.StatusCount{Pending: 1, Approved: 1, Total: 2}, counts.Created)
	assert.Equal(t, dto.StatusCount{Pending: 1, Total: 1}, counts.Assigned)
	assert.Equal(t, dto.StatusCount{Pending: 2, Approved: 1, Total: 3}, counts.Department)
}

func TestFormService_ReasonsAndTypes(t *testing.T) {
	env := newTestEnv(t)

	all, err := env.svc.Form.Reasons(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	absentee, err := env.svc.Form.Reasons(context.Background(), "absentee")
	require.NoError(t, err)
	require.Len(t, absentee, 1)
	assert.Equal(t, model.HalfProductivity, absentee[0].Productivity)

	types := env.svc.Form.Types()
	require.Len(t, types, 10)
	assert.Equal(t, dto.FormTypeResponse{Name: "leave_request", Value: "Leave Request"}, types[0])
	assert.Equal(t, dto.FormTypeResponse{Name: "resignation", Value: "Resignation"}, types[9])
}

func TestFormService_Details(t *testing.T) {
	env := newTestEnv(t)
	alice := claimsOf(env.createUser(t, "alice", model.UserStatusActive, false))
	form := createForm(t, env, alice, "boss", detailReq("2024-03-04", "2024-03-04"), detailReq("2024-03-05", "2024-03-05"))

	details, err := env.svc.Form.Details(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, detailIDs(form.Details), detailIDs(details))

	_, err = env.svc.Form.Details(context.Background(), 999)
	assertBadRequest(t, err, ErrFormNotFound.Error())
}
