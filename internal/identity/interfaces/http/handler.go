// Package http 身份核验上下文的 HTTP 接口
package http

import (
	"encoding/base64"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/odinlabs/claimportal/internal/claim/domain"
	"github.com/odinlabs/claimportal/internal/identity/application"
	"github.com/odinlabs/claimportal/internal/identity/domain"
)

// Handler 身份核验 HTTP 处理器
type Handler struct {
	service *application.Service
	// 单个上传文件的字节上限
	maxUploadSize int64
}

// NewHandler 创建身份核验 HTTP 处理器
func NewHandler(service *application.Service, maxUploadSize int64) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSize}
}

// RegisterRoutes 注册路由。回调路由不挂认证中间件，
// 真伪由载荷签名判定。
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	identity := router.Group("/identity")
	{
		identity.POST("/:account_id", h.Submit)
		identity.GET("/:account_id", h.History)
	}
	router.POST("/kyc/callback", h.Callback)
}

// Submit 受理核验提交，multipart 表单携带证件字段与图片
func (h *Handler) Submit(c *gin.Context) {
	cmd := application.SubmitCommand{
		AccountID:      c.Param("account_id"),
		Country:        c.PostForm("country"),
		DocumentType:   c.PostForm("document_type"),
		DocumentNumber: c.PostForm("document_number"),
		FirstName:      c.PostForm("first_name"),
		LastName:       c.PostForm("last_name"),
		DateOfBirth:    c.PostForm("dob"),
	}
	if cmd.DocumentNumber == "" || cmd.DocumentType == "" || cmd.Country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "missing document fields"})
		return
	}

	var err error
	if cmd.DocumentProof, err = h.encodedFile(c, "document_proof"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	if cmd.FaceProof, err = h.encodedFile(c, "face_proof"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	if cmd.AddressProof, err = h.encodedFile(c, "address_proof"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}
	if cmd.DocumentProof == "" || cmd.FaceProof == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "document and face proofs are required"})
		return
	}

	check, err := h.service.Submit(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": check})
}

// History 账户的核验历史
func (h *Handler) History(c *gin.Context) {
	checks, err := h.service.History(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": checks})
}

// Callback 服务商回调。无论载荷真伪一律返回 200：
// 签名不符或引用未知时只记日志，不向对端暴露任何区分信号。
func (h *Handler) Callback(c *gin.Context) {
	var payload domain.CallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.Status(http.StatusOK)
		return
	}
	if err := h.service.HandleCallback(c.Request.Context(), payload); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)
}

// encodedFile 读取上传文件并转 base64，文件缺失时返回空串
func (h *Handler) encodedFile(c *gin.Context, field string) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	if header.Size > h.maxUploadSize {
		return "", errors.New(field + " exceeds upload size limit")
	}

	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > h.maxUploadSize {
		return "", errors.New(field + " exceeds upload size limit")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, claimdomain.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateIdentity),
		errors.Is(err, domain.ErrKycAccepted),
		errors.Is(err, domain.ErrKycInFlight):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrKycMaxDeclines),
		errors.Is(err, domain.ErrKycMaxInvalid):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrKycRetryWait):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"code": status, "message": err.Error()})
}
