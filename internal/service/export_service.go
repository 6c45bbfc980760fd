package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/model"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("Failed to generate Excel file")

const exportSheet = "Forms"

var exportHeader = []interface{}{
	"ID", "Form Type", "Status", "Phase", "Reason", "Productivity",
	"Department", "Role", "Created User", "Assigned User",
	"From", "To", "Description", "Note", "Created",
}

// ExportService 导出业务接口
//
// 每条明细一行；没有明细的表单输出一行，起止时间留空
type ExportService interface {
	ExportForms(ctx context.Context, caller *jwt.Claims, req *dto.FormExportRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) ExportForms(ctx context.Context, caller *jwt.Claims, req *dto.FormExportRequest) (*bytes.Buffer, string, error) {
	scope := repository.FormScope(req.Scope)
	if scope == "" {
		scope = repository.ScopeCreated
	}
	filter := scopeFilter(caller, scope)
	filter.Status = model.FormStatus(req.Status)

	forms, err := s.repo.Form.ListWithDetails(ctx, filter)
	if err != nil {
		s.logger.Error("查询导出表单失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, "", ErrExportGenerateFail
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	_ = f.SetSheetRow(exportSheet, "A1", &exportHeader)
	lastCol := colName(len(exportHeader) - 1)
	_ = f.SetCellStyle(exportSheet, "A1", cell(lastCol, 1), headerStyle)
	_ = f.SetColWidth(exportSheet, "A", "A", 8)
	_ = f.SetColWidth(exportSheet, "B", lastCol, 20)

	row := 2
	for _, form := range forms {
		details := form.Details
		if len(details) == 0 {
			details = []model.FormDetail{{}}
		}
		for _, d := range details {
			values := formRow(&form, &d)
			if err := f.SetSheetRow(exportSheet, cell("A", row), &values); err != nil {
				s.logger.Error("写入 Excel 行失败", zap.Int("row", row), zap.Error(err))
				return nil, "", ErrExportGenerateFail
			}
			row++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("forms_%s_%s.xlsx", scope, caller.Username)
	return buf, filename, nil
}

func formRow(form *model.Form, d *model.FormDetail) []interface{} {
	reason := fmt.Sprintf("%d", form.Reason)
	if form.FormReason != nil {
		reason = form.FormReason.Name
	}
	from, to := "", ""
	if d.ID != 0 {
		from = d.FromDate.String() + " " + d.FromTime
		to = d.ToDate.String() + " " + d.ToTime
	}
	return []interface{}{
		form.ID,
		form.FormType.Display(),
		form.FormStatus.Display(),
		form.FormPhase.Display(),
		reason,
		form.Productivity.Display(),
		form.Department,
		form.Role,
		form.CreatedUser,
		form.AssignedUser,
		from,
		to,
		deref(form.Description),
		deref(form.Note),
		form.Created.Format("2006-01-02 15:04:05"),
	}
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
