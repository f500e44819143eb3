package controller

import (
	"strconv"

	"evalhub_backend/internal/model"
	"evalhub_backend/internal/service"
	"evalhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// CreateSubmission godoc
// @Summary 提交测验答卷
// @Description 学生提交课程测验的答卷，进入待分配队列
// @Tags 提交
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.SubmissionRequest true "答卷内容"
// @Success 201 {object} util.Response{data=model.Submission} "创建成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 422 {object} util.Response "课程未发布"
// @Router /api/submissions [post]
func (c *SubmissionController) CreateSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.SubmissionService.CreateSubmission(claims.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, sub)
}

// GetSubmission godoc
// @Summary 提交详情
// @Tags 提交
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "提交ID"
// @Success 200 {object} util.Response{data=model.Submission} "成功"
// @Failure 404 {object} util.Response "提交不存在"
// @Router /api/submissions/{id} [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	sub, err := c.SubmissionService.GetSubmission(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	// 学生只能看自己的提交
	if claims.Role == model.Student && sub.UserID != claims.UserID {
		util.Forbidden(ctx)
		return
	}
	util.Success(ctx, sub)
}

// ListSubmissions godoc
// @Summary 提交列表
// @Tags 提交
// @Produce  json
// @Security ApiKeyAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param courseId query int false "按课程过滤"
// @Param status query string false "按状态过滤"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/submissions [get]
func (c *SubmissionController) ListSubmissions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	courseID := util.MustParseUint(ctx.Query("courseId"))
	status := ctx.Query("status")

	var userID uint
	if claims.Role == model.Student {
		userID = claims.UserID
	}

	subs, total, err := c.SubmissionService.ListSubmissions(userID, courseID, status, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  subs,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// UploadScreenshot godoc
// @Summary 上传评阅截图
// @Description 为某份提交上传运行结果截图，仅支持图片格式
// @Tags 提交
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "提交ID"
// @Param   file formData file true "截图文件"
// @Success 201 {object} util.Response{data=model.Screenshot} "上传成功"
// @Failure 400 {object} util.Response "文件格式不支持"
// @Failure 404 {object} util.Response "提交不存在"
// @Router /api/submissions/{id}/screenshots [post]
func (c *SubmissionController) UploadScreenshot(ctx *gin.Context) {
	submissionID := util.MustParseUint(ctx.Param("id"))
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}

	shot, err := c.SubmissionService.UploadScreenshot(ctx.Request.Context(), submissionID, file)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, shot)
}

// ListScreenshots godoc
// @Summary 提交的截图列表
// @Tags 提交
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "提交ID"
// @Success 200 {object} util.Response{data=[]model.Screenshot} "成功"
// @Router /api/submissions/{id}/screenshots [get]
func (c *SubmissionController) ListScreenshots(ctx *gin.Context) {
	shots, err := c.SubmissionService.ListScreenshots(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, shots)
}
