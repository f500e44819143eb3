package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/util"
	"evalhub_backend/pkg/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportService 评阅结果与审计日志导出。
// CSV 用于程序化消费，XLSX 用于人工查看；内容以 bytes.Buffer 返回，
// 由 controller 设置响应头后写出。
type ExportService struct {
	EvaluationRepo *repository.EvaluationRepository
	AuditRepo      *repository.AuditRepository
	UserRepo       *repository.UserRepository
}

func NewExportService(evaluationRepo *repository.EvaluationRepository,
	auditRepo *repository.AuditRepository, userRepo *repository.UserRepository) *ExportService {
	return &ExportService{
		EvaluationRepo: evaluationRepo,
		AuditRepo:      auditRepo,
		UserRepo:       userRepo,
	}
}

var evaluationHeader = []string{"submission_id", "faculty_id", "faculty_name", "total_score", "feedback", "evaluated_at"}

func (s *ExportService) evaluationRows() ([][]string, error) {
	evaluations, err := s.EvaluationRepo.ListAll()
	if err != nil {
		return nil, err
	}

	// 评阅人名称查一次缓存住，避免逐行查表
	names := make(map[uint]string)
	rows := make([][]string, 0, len(evaluations))
	for _, e := range evaluations {
		name, ok := names[e.FacultyID]
		if !ok {
			if u, err := s.UserRepo.FindByID(e.FacultyID); err == nil {
				name = u.Name
			}
			names[e.FacultyID] = name
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(e.SubmissionID), 10),
			strconv.FormatUint(uint64(e.FacultyID), 10),
			name,
			strconv.Itoa(e.TotalScore),
			e.Feedback,
			e.CreatedAt.Format(util.TimeFormat),
		})
	}
	return rows, nil
}

// ExportEvaluationsCSV 全量评阅结果导出为 CSV
func (s *ExportService) ExportEvaluationsCSV() (*bytes.Buffer, string, error) {
	rows, err := s.evaluationRows()
	if err != nil {
		return nil, "", err
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(evaluationHeader); err != nil {
		return nil, "", err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("evaluations_%s.csv", time.Now().Format(util.DateFormat))
	return buf, filename, nil
}

// ExportEvaluationsXLSX 全量评阅结果导出为 Excel
func (s *ExportService) ExportEvaluationsXLSX() (*bytes.Buffer, string, error) {
	rows, err := s.evaluationRows()
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Log.Error("close excel file", zap.Error(err))
		}
	}()

	sheet := "评阅结果"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, h := range evaluationHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("evaluations_%s.xlsx", time.Now().Format(util.DateFormat))
	return buf, filename, nil
}

// ExportAuditLogCSV 审计日志导出为 CSV，可按提交/评阅人/动作过滤
func (s *ExportService) ExportAuditLogCSV(filter repository.AuditFilter) (*bytes.Buffer, string, error) {
	// 导出不分页，单页上限放大
	entries, _, err := s.AuditRepo.List(filter, 1, 100000)
	if err != nil {
		return nil, "", err
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"id", "submission_id", "action", "from_faculty_id", "to_faculty_id", "actor_role", "admin_id", "notes", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, "", err
	}

	fmtRef := func(v *uint) string {
		if v == nil {
			return ""
		}
		return strconv.FormatUint(uint64(*v), 10)
	}

	for _, e := range entries {
		row := []string{
			e.ID,
			strconv.FormatUint(uint64(e.SubmissionID), 10),
			string(e.ActionType),
			fmtRef(e.FromFacultyID),
			fmtRef(e.ToFacultyID),
			string(e.ActorRole),
			fmtRef(e.AdminID),
			e.Notes,
			e.CreatedAt.Format(util.TimeFormat),
		}
		if err := w.Write(row); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("audit_log_%s.csv", time.Now().Format(util.DateFormat))
	return buf, filename, nil
}
