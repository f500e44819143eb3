package controller

import (
	"strconv"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/repository"
	"evalhub_backend/internal/service"
	"evalhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
	DashboardService  *service.DashboardService
}

func NewAssignmentController(assignmentService *service.AssignmentService,
	dashboardService *service.DashboardService) *AssignmentController {
	return &AssignmentController{
		AssignmentService: assignmentService,
		DashboardService:  dashboardService,
	}
}

// SmartAssign godoc
// @Summary 智能分配
// @Description 把未分配的提交按负载均衡策略分给可用评阅人
// @Tags 分配
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功，data.assigned 为分配数量"
// @Router /api/admin/assignments/smart-assign [post]
func (c *AssignmentController) SmartAssign(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	assigned, err := c.AssignmentService.SmartAssign(claims.Role)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.DashboardService.InvalidateCache(ctx.Request.Context())
	util.Success(ctx, gin.H{"assigned": assigned})
}

// BulkAssign godoc
// @Summary 手动/批量指派
// @Description 把一批提交指派给指定评阅人，单条失败不影响其他条目
// @Tags 分配
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.BulkAssignRequest true "提交ID列表与目标评阅人"
// @Success 200 {object} util.Response{data=service.BulkAssignResult} "成功"
// @Failure 404 {object} util.Response "目标评阅人不存在"
// @Failure 422 {object} util.Response "目标评阅人不可用"
// @Router /api/admin/assignments/bulk [post]
func (c *AssignmentController) BulkAssign(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.BulkAssignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AssignmentService.BulkAssign(req, claims.Role, claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.DashboardService.InvalidateCache(ctx.Request.Context())
	util.Success(ctx, result)
}

// Reallocate godoc
// @Summary 转派提交
// @Description 评阅人把分给自己的提交转派给其他评阅人，需通过全部转派校验
// @Tags 分配
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ReallocateRequest true "转派目标与原因"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "提交不属于当前评阅人"
// @Failure 409 {object} util.Response "锁冲突或并发修改"
// @Failure 422 {object} util.Response "容量已满、次数超限等"
// @Failure 429 {object} util.Response "冷却期未过，Retry-After 为剩余秒数"
// @Router /api/assignments/reallocate [post]
func (c *AssignmentController) Reallocate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ReallocateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AssignmentService.Reallocate(claims.UserID, claims.Role, req); err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.DashboardService.InvalidateCache(ctx.Request.Context())
	util.Success(ctx, nil)
}

// Redistribute godoc
// @Summary 疏散评阅人负载
// @Description 把某评阅人的未完成分配转移给有空余容量的其他评阅人
// @Tags 分配
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "源评阅人ID"
// @Success 200 {object} util.Response{data=object} "成功，data.moved 为移动数量"
// @Failure 404 {object} util.Response "源评阅人不存在"
// @Router /api/admin/faculty/{id}/redistribute [post]
func (c *AssignmentController) Redistribute(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fromID := util.MustParseUint(ctx.Param("id"))
	moved, err := c.AssignmentService.Redistribute(fromID, claims.Role, claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.DashboardService.InvalidateCache(ctx.Request.Context())
	util.Success(ctx, gin.H{"moved": moved})
}

// ListAssignments godoc
// @Summary 分配列表
// @Description 评阅人看自己的分配，管理员可按评阅人过滤
// @Tags 分配
// @Produce  json
// @Security ApiKeyAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param facultyId query int false "按评阅人过滤（仅管理员）"
// @Param status query string false "按状态过滤"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/assignments [get]
func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	status := ctx.Query("status")

	facultyID := claims.UserID
	if claims.Role == model.Admin {
		facultyID = util.MustParseUint(ctx.Query("facultyId"))
	}

	assignments, total, err := c.AssignmentService.ListAssignments(facultyID, status, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  assignments,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetAssignment godoc
// @Summary 某提交的分配详情
// @Tags 分配
// @Produce  json
// @Security ApiKeyAuth
// @Param   submissionId path int true "提交ID"
// @Success 200 {object} util.Response{data=model.Assignment} "成功"
// @Failure 404 {object} util.Response "尚未分配"
// @Router /api/assignments/{submissionId} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	a, err := c.AssignmentService.GetAssignment(util.MustParseUint(ctx.Param("submissionId")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// ListAuditLog godoc
// @Summary 流转审计日志
// @Description 分配、转派、评阅等动作的完整审计记录
// @Tags 分配
// @Produce  json
// @Security ApiKeyAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param submissionId query int false "按提交过滤"
// @Param facultyId query int false "按评阅人过滤"
// @Param action query string false "按动作类型过滤"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/admin/audit-log [get]
func (c *AssignmentController) ListAuditLog(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	filter := repository.AuditFilter{
		SubmissionID: util.MustParseUint(ctx.Query("submissionId")),
		FacultyID:    util.MustParseUint(ctx.Query("facultyId")),
		ActionType:   ctx.Query("action"),
	}

	entries, total, err := c.AssignmentService.ListAuditLog(filter, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  entries,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
