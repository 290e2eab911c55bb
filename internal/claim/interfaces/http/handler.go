// Package http 申领上下文的 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/odinlabs/claimportal/internal/claim/application"
	"github.com/odinlabs/claimportal/internal/claim/domain"
)

// Handler 申领 HTTP 处理器
type Handler struct {
	service *application.Service
}

// NewHandler 创建申领 HTTP 处理器
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	claim := router.Group("/claim")
	{
		claim.GET("/:account_id", h.GetAccount)
		claim.POST("/:account_id/lock", h.LockBalance)
		claim.POST("/:account_id/refresh", h.RefreshBalance)
		claim.POST("/:account_id/setup", h.SetupClaim)
		claim.GET("/:account_id/flags", h.ListFlags)
	}
}

// GetAccount 查询申领账户
func (h *Handler) GetAccount(c *gin.Context) {
	account, err := h.service.GetAccount(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": account})
}

// LockBalance 锁定余额
func (h *Handler) LockBalance(c *gin.Context) {
	account, err := h.service.LockBalance(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": account})
}

// RefreshBalance 刷新未锁定账户的余额
func (h *Handler) RefreshBalance(c *gin.Context) {
	account, err := h.service.RefreshBalance(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": account})
}

// SetupClaim 账本开户
func (h *Handler) SetupClaim(c *gin.Context) {
	account, err := h.service.SetupClaim(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": account})
}

// ListFlags 查询账户风险标记
func (h *Handler) ListFlags(c *gin.Context) {
	flags, err := h.service.Flags(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": flags})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyLocked),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, application.ErrSetupDone):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrLockWindowClosed),
		errors.Is(err, application.ErrNotApproved):
		status = http.StatusForbidden
	case errors.Is(err, application.ErrNotLocked):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"code": status, "message": err.Error()})
}
