package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody 错误响应体
type ErrorBody struct {
	ErrMsg string `json:"errMsg"`
}

// MessageBody 简单消息响应体
type MessageBody struct {
	Message string `json:"message"`
}

// PageData 分页响应数据，page 从 0 开始
type PageData struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalCount int64       `json:"total_count"`
}

// ── 成功响应（直接返回记录，不做信封包装） ──

// OK 200
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Message 返回 {"message": ...}
func Message(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, MessageBody{Message: message})
}

// OKPage 200 分页
func OKPage(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, PageData{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{ErrMsg: message})
}

// AbortError 中间件中使用，终止后续处理
func AbortError(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{ErrMsg: message})
}

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// InternalError 500，消息为错误原文
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// Conflict 409
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}
