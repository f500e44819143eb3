package controller

import (
	"evalhub_backend/internal/service"
	"evalhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// Overview godoc
// @Summary 工作台总览
// @Description 提交/分配状态统计与评阅人负载一览，带短缓存
// @Tags 工作台
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.DashboardOverview} "成功"
// @Router /api/admin/dashboard [get]
func (c *DashboardController) Overview(ctx *gin.Context) {
	overview, err := c.DashboardService.Overview(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}
