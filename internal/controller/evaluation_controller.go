package controller

import (
	"strconv"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/service"
	"evalhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EvaluationController struct {
	AssignmentService *service.AssignmentService
	EvaluationService *service.EvaluationService
}

func NewEvaluationController(assignmentService *service.AssignmentService,
	evaluationService *service.EvaluationService) *EvaluationController {
	return &EvaluationController{
		AssignmentService: assignmentService,
		EvaluationService: evaluationService,
	}
}

// StartEvaluation godoc
// @Summary 开始评阅
// @Description 把分配推进到 in_progress 并为当前评阅人上锁
// @Tags 评阅
// @Produce  json
// @Security ApiKeyAuth
// @Param   submissionId path int true "提交ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "提交不属于当前评阅人"
// @Failure 409 {object} util.Response "其他评阅人持锁中"
// @Failure 422 {object} util.Response "已评阅完成"
// @Router /api/evaluations/{submissionId}/start [post]
func (c *EvaluationController) StartEvaluation(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	submissionID := util.MustParseUint(ctx.Param("submissionId"))
	if err := c.AssignmentService.StartEvaluation(claims.UserID, submissionID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Heartbeat godoc
// @Summary 评阅心跳
// @Description 刷新评阅软锁，锁已失时返回404
// @Tags 评阅
// @Produce  json
// @Security ApiKeyAuth
// @Param   submissionId path int true "提交ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "评阅锁已失效"
// @Router /api/evaluations/{submissionId}/heartbeat [post]
func (c *EvaluationController) Heartbeat(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	submissionID := util.MustParseUint(ctx.Param("submissionId"))
	if err := c.AssignmentService.Heartbeat(claims.UserID, submissionID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SubmitEvaluation godoc
// @Summary 提交评分
// @Description 写入评分并把分配推进到终态 evaluated
// @Tags 评阅
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.EvaluationRequest true "逐题得分与总评"
// @Success 201 {object} util.Response{data=model.Evaluation} "创建成功"
// @Failure 403 {object} util.Response "提交不属于当前评阅人"
// @Failure 409 {object} util.Response "并发修改"
// @Failure 422 {object} util.Response "已评阅完成"
// @Router /api/evaluations [post]
func (c *EvaluationController) SubmitEvaluation(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.EvaluationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	evaluation, err := c.AssignmentService.SubmitEvaluation(claims.UserID, claims.Role, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, evaluation)
}

// Reopen godoc
// @Summary 重开评阅
// @Description 管理员把已评阅完成的提交退回重评，旧评分作废
// @Tags 评阅
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   submissionId path int true "提交ID"
// @Param   body body ReopenRequest false "重开原因"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "尚未分配"
// @Failure 422 {object} util.Response "尚未评阅完成"
// @Router /api/admin/evaluations/{submissionId}/reopen [post]
func (c *EvaluationController) Reopen(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ReopenRequest
	_ = ctx.ShouldBindJSON(&req)

	submissionID := util.MustParseUint(ctx.Param("submissionId"))
	if err := c.AssignmentService.Reopen(claims.UserID, submissionID, req.Notes); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// swagger:model ReopenRequest
type ReopenRequest struct {
	Notes string `json:"notes"`
}

// GetEvaluation godoc
// @Summary 某提交的评分结果
// @Tags 评阅
// @Produce  json
// @Security ApiKeyAuth
// @Param   submissionId path int true "提交ID"
// @Success 200 {object} util.Response{data=model.Evaluation} "成功"
// @Failure 404 {object} util.Response "尚无评分"
// @Router /api/evaluations/{submissionId} [get]
func (c *EvaluationController) GetEvaluation(ctx *gin.Context) {
	evaluation, err := c.EvaluationService.GetBySubmission(util.MustParseUint(ctx.Param("submissionId")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, evaluation)
}

// ListEvaluations godoc
// @Summary 评分结果列表
// @Description 评阅人看自己给出的评分，管理员可按评阅人过滤
// @Tags 评阅
// @Produce  json
// @Security ApiKeyAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param facultyId query int false "按评阅人过滤（仅管理员）"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/evaluations [get]
func (c *EvaluationController) ListEvaluations(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	facultyID := claims.UserID
	if claims.Role == model.Admin {
		facultyID = util.MustParseUint(ctx.Query("facultyId"))
	}

	evaluations, total, err := c.EvaluationService.List(facultyID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  evaluations,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
