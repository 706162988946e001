package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/skycial/internal/api/middleware"
	"github.com/d60-Lab/skycial/pkg/response"
)

// MyAstrology 当前用户星座内容
// @Summary 当前用户星座的美妆建议、每日提示与配对
// @Tags 星座
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.SignContent}
// @Failure 400 {object} response.Response
// @Router /api/v1/astrology/me [get]
func (h *Handler) MyAstrology(c *gin.Context) {
	content, err := h.astrologyService.ForSign(c.Request.Context(), middleware.ViewerFrom(c).ZodiacSign)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, content)
}

// SignAstrology 指定星座内容
// @Summary 指定星座的内容
// @Tags 星座
// @Produce json
// @Param sign path string true "星座，如 Leo"
// @Success 200 {object} response.Response{data=service.SignContent}
// @Router /api/v1/astrology/signs/{sign} [get]
func (h *Handler) SignAstrology(c *gin.Context) {
	content, err := h.astrologyService.ForSign(c.Request.Context(), c.Param("sign"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, content)
}

// BeautyTips 全部星座美妆建议
// @Summary 美妆建议（登录用户自己的星座排在最前）
// @Tags 星座
// @Produce json
// @Success 200 {object} response.Response{data=service.BeautyTips}
// @Router /api/v1/astrology/tips [get]
func (h *Handler) BeautyTips(c *gin.Context) {
	sign := ""
	if v := middleware.ViewerFrom(c); v != nil {
		sign = v.ZodiacSign
	}
	tips, err := h.astrologyService.BeautyTips(c.Request.Context(), sign)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, tips)
}
