package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-forms/internal/common/models"
	"go-forms/internal/features/approval"
	"go-forms/internal/features/audit"
	"go-forms/internal/features/submission"
	"go-forms/internal/features/template"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ExportService renders a template's submissions as a spreadsheet: one
// column per field plus the workflow bookkeeping columns.
type ExportService interface {
	ExportSubmissions(ctx context.Context, templateSlug string) ([]byte, string, error)
}

type ExportServiceImpl struct {
	Templates   template.TemplateService
	Submissions submission.SubmissionRepository
	Audit       audit.AuditService
	Logger      *zap.Logger
}

func NewExportService(templates template.TemplateService, submissions submission.SubmissionRepository, auditService audit.AuditService, logger *zap.Logger) ExportService {
	return &ExportServiceImpl{
		Templates:   templates,
		Submissions: submissions,
		Audit:       auditService,
		Logger:      logger,
	}
}

func (s *ExportServiceImpl) ExportSubmissions(ctx context.Context, templateSlug string) ([]byte, string, error) {
	tpl, err := s.Templates.GetPublished(ctx, templateSlug)
	if err != nil {
		return nil, "", err
	}

	subs, err := s.Submissions.ListByTemplate(ctx, templateSlug)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Submissions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	columns := []string{"id", "status", "step", "assigned_to", "submitted_by", "created_at", "approvals"}
	for _, field := range tpl.Fields {
		columns = append(columns, field.Name)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, sub := range subs {
		row := map[string]interface{}{
			"id":           sub.ID,
			"status":       string(sub.State.Status),
			"step":         sub.State.CurrentStepID,
			"assigned_to":  sub.State.AssignedTo,
			"submitted_by": sub.SubmittedBy,
			"created_at":   sub.CreatedAt,
			"approvals":    approvalHistory(sub.State.Approvals),
		}
		for k, v := range sub.Data {
			row[k] = v
		}

		for colIdx, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			switch v := row[col].(type) {
			case time.Time:
				f.SetCellValue(sheetName, cell, v.Format("2006-01-02 15:04:05"))
			case primitive.ObjectID:
				f.SetCellValue(sheetName, cell, v.Hex())
			case []interface{}:
				f.SetCellValue(sheetName, cell, fmt.Sprintf("%v", v))
			case map[string]interface{}:
				f.SetCellValue(sheetName, cell, fmt.Sprintf("%v", v))
			default:
				f.SetCellValue(sheetName, cell, v)
			}
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 15)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("%s_submissions_%s.xlsx", templateSlug, time.Now().Format("20060102_150405"))

	s.Audit.LogChange(ctx, models.AuditActionExport, "submissions", templateSlug, map[string]models.Change{
		"export": {New: filename},
	})
	s.Logger.Info("submissions exported",
		zap.String("template", templateSlug), zap.Int("rows", len(subs)))

	return buffer.Bytes(), filename, nil
}

// approvalHistory flattens a submission's approval records into one readable
// cell, pass by pass.
func approvalHistory(records []approval.ApprovalRecord) string {
	if len(records) == 0 {
		return ""
	}
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		entry := fmt.Sprintf("p%d L%d %s:%s", rec.Pass, rec.LevelIndex, rec.ApproverID, rec.Status)
		if rec.DecidedBy != "" && rec.DecidedBy != rec.ApproverID {
			entry += " by " + rec.DecidedBy
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, "; ")
}
