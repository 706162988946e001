package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/skycial/internal/api/middleware"
	"github.com/d60-Lab/skycial/pkg/response"
)

type redeemRequest struct {
	RewardID string `json:"reward_id" binding:"required"`
}

type purchaseReportRequest struct {
	ReportID string `json:"report_id" binding:"required"`
}

type referralRequest struct {
	Email string `json:"email" binding:"required"`
}

// Points 余额与流水
// @Summary 积分余额与最近流水
// @Tags 积分
// @Produce json
// @Security BearerAuth
// @Param limit query int false "流水条数" default(50)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/points [get]
func (h *Handler) Points(c *gin.Context) {
	viewer := middleware.ViewerFrom(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	balance, err := h.pointsService.Balance(c.Request.Context(), viewer)
	if err != nil {
		fail(c, err)
		return
	}
	history, err := h.pointsService.History(c.Request.Context(), viewer, limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance, "history": history})
}

// DailyLogin 每日登录奖励
// @Summary 领取每日登录奖励（每个 UTC 日一次）
// @Tags 积分
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.DailyLoginResult}
// @Router /api/v1/points/daily-login [post]
func (h *Handler) DailyLogin(c *gin.Context) {
	res, err := h.pointsService.DailyLogin(c.Request.Context(), middleware.ViewerFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}

// Rewards 兑换目录
// @Summary 可兑换奖励与可购买报告
// @Tags 积分
// @Produce json
// @Success 200 {object} response.Response{data=service.Catalog}
// @Router /api/v1/rewards [get]
func (h *Handler) Rewards(c *gin.Context) {
	response.Success(c, h.pointsService.Catalog())
}

// Redeem 兑换奖励
// @Summary 用积分兑换奖励
// @Tags 积分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body redeemRequest true "奖励ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 402 {object} response.Response
// @Router /api/v1/points/redeem [post]
func (h *Handler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	balance, err := h.pointsService.Redeem(c.Request.Context(), middleware.ViewerFrom(c), req.RewardID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// PurchaseReport 购买报告
// @Summary 用积分购买星座美妆报告
// @Tags 积分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body purchaseReportRequest true "报告ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 402 {object} response.Response
// @Router /api/v1/points/purchase-report [post]
func (h *Handler) PurchaseReport(c *gin.Context) {
	var req purchaseReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	balance, err := h.pointsService.PurchaseReport(c.Request.Context(), middleware.ViewerFrom(c), req.ReportID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// Refer 推荐好友
// @Summary 推荐一个邮箱（每个邮箱只奖励一次）
// @Tags 积分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body referralRequest true "被推荐邮箱"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 409 {object} response.Response
// @Router /api/v1/points/referrals [post]
func (h *Handler) Refer(c *gin.Context) {
	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	balance, err := h.pointsService.Refer(c.Request.Context(), middleware.ViewerFrom(c), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"balance": balance})
}
