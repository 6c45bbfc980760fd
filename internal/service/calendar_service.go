package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/internal/model"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
)

const calendarProductID = "-//ata-sample-webapp//leave calendar//EN"

// CalendarService 部门请假日历
type CalendarService interface {
	// DepartmentCalendar 当前用户所在部门已审批表单，每条明细一个 VEVENT
	DepartmentCalendar(ctx context.Context, caller *jwt.Claims) (string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
	loc    *time.Location
}

// NewCalendarService 创建 CalendarService 实例，明细时间按 loc 解释
func NewCalendarService(repo *repository.Repository, logger *zap.Logger, loc *time.Location) CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	return &calendarService{repo: repo, logger: logger, loc: loc}
}

func (s *calendarService) DepartmentCalendar(ctx context.Context, caller *jwt.Claims) (string, error) {
	forms, err := s.repo.Form.ListWithDetails(ctx, repository.FormFilter{
		Scope:  repository.ScopeDepartment,
		Value:  caller.Department,
		Status: model.FormStatusApproved,
	})
	if err != nil {
		s.logger.Error("查询已审批表单失败", zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(fmt.Sprintf("%s leave calendar", caller.Department))

	for _, form := range forms {
		for _, d := range form.Details {
			start, err := s.at(d.FromDate, d.FromTime)
			if err != nil {
				s.logger.Warn("明细开始时间无效", zap.Uint("detail", d.ID), zap.Error(err))
				continue
			}
			end, err := s.at(d.ToDate, d.ToTime)
			if err != nil {
				s.logger.Warn("明细结束时间无效", zap.Uint("detail", d.ID), zap.Error(err))
				continue
			}

			event := cal.AddEvent(fmt.Sprintf("form-%d-detail-%d", form.ID, d.ID))
			event.SetDtStampTime(form.LastUpdated)
			event.SetCreatedTime(form.Created)
			event.SetStartAt(start)
			event.SetEndAt(end)
			event.SetSummary(fmt.Sprintf("%s: %s", form.CreatedUser, form.FormType.Display()))
			event.SetDescription(eventDescription(&form))
		}
	}

	return cal.Serialize(), nil
}

func (s *calendarService) at(d model.Date, clock string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", d.String()+" "+clock, s.loc)
}

func eventDescription(form *model.Form) string {
	desc := fmt.Sprintf("Productivity: %s", form.Productivity.Display())
	if form.FormReason != nil {
		desc = fmt.Sprintf("Reason: %s\n%s", form.FormReason.Name, desc)
	}
	if form.Description != nil && *form.Description != "" {
		desc += "\n" + *form.Description
	}
	return desc
}
