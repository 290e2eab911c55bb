// Package http 提现上下文的 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/odinlabs/claimportal/internal/claim/domain"
	"github.com/odinlabs/claimportal/internal/withdraw/application"
	"github.com/odinlabs/claimportal/internal/withdraw/domain"
	"github.com/shopspring/decimal"
)

// Handler 提现 HTTP 处理器
type Handler struct {
	service *application.Service
}

// NewHandler 创建提现 HTTP 处理器
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	withdraw := router.Group("/withdraw")
	{
		withdraw.POST("/:account_id", h.Request)
		withdraw.GET("/:account_id", h.List)
	}
}

type withdrawRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// Request 受理提现请求
func (h *Handler) Request(c *gin.Context) {
	var body withdrawRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid amount"})
		return
	}

	request, err := h.service.RequestWithdraw(c.Request.Context(), c.Param("account_id"), body.Address, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": request})
}

// List 账户的提现请求列表
func (h *Handler) List(c *gin.Context) {
	requests, err := h.service.ListRequests(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": requests})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, claimdomain.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrClaimNotSetup),
		errors.Is(err, domain.ErrInsufficientBalance):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRequestBlocked):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"code": status, "message": err.Error()})
}
