// Package http 通知偏好的 HTTP 接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/odinlabs/claimportal/internal/notification/application"
)

// Handler 通知偏好 HTTP 处理器
type Handler struct {
	service *application.Service
}

// NewHandler 创建通知偏好 HTTP 处理器
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.PUT("/notifications/:account_id/preferences", h.UpdatePreference)
}

type preferenceRequest struct {
	EmailClaim *bool `json:"email_claim" binding:"required"`
	SMSClaim   *bool `json:"sms_claim" binding:"required"`
}

// UpdatePreference 更新账户通知偏好
func (h *Handler) UpdatePreference(c *gin.Context) {
	var body preferenceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}

	if err := h.service.UpdatePreference(c.Request.Context(),
		c.Param("account_id"), *body.EmailClaim, *body.SMSClaim); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0})
}
