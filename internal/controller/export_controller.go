package controller

import (
	"fmt"
	"net/http"

	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/service"
	"evalhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExportController struct {
	ExportService *service.ExportService
}

func NewExportController(exportService *service.ExportService) *ExportController {
	return &ExportController{ExportService: exportService}
}

func sendAttachment(ctx *gin.Context, buf []byte, filename, contentType string) {
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Data(http.StatusOK, contentType, buf)
}

// ExportEvaluations godoc
// @Summary 导出评阅结果
// @Description 导出全量评分结果，format 支持 csv 和 xlsx
// @Tags 导出
// @Produce  application/octet-stream
// @Security ApiKeyAuth
// @Param format query string false "导出格式" Enums(csv, xlsx) default(csv)
// @Success 200 {file} file "导出文件"
// @Router /api/admin/export/evaluations [get]
func (c *ExportController) ExportEvaluations(ctx *gin.Context) {
	format := ctx.DefaultQuery("format", "csv")

	switch format {
	case "csv":
		buf, filename, err := c.ExportService.ExportEvaluationsCSV()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		sendAttachment(ctx, buf.Bytes(), filename, "text/csv")
	case "xlsx":
		buf, filename, err := c.ExportService.ExportEvaluationsXLSX()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		sendAttachment(ctx, buf.Bytes(), filename,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		util.BadRequest(ctx, "format 只支持 csv 或 xlsx")
	}
}

// ExportAuditLog godoc
// @Summary 导出审计日志
// @Description 导出流转审计日志为 CSV，支持与审计查询相同的过滤条件
// @Tags 导出
// @Produce  application/octet-stream
// @Security ApiKeyAuth
// @Param submissionId query int false "按提交过滤"
// @Param facultyId query int false "按评阅人过滤"
// @Param action query string false "按动作类型过滤"
// @Success 200 {file} file "导出文件"
// @Router /api/admin/export/audit-log [get]
func (c *ExportController) ExportAuditLog(ctx *gin.Context) {
	filter := repository.AuditFilter{
		SubmissionID: util.MustParseUint(ctx.Query("submissionId")),
		FacultyID:    util.MustParseUint(ctx.Query("facultyId")),
		ActionType:   ctx.Query("action"),
	}

	buf, filename, err := c.ExportService.ExportAuditLogCSV(filter)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	sendAttachment(ctx, buf.Bytes(), filename, "text/csv")
}
