// Package handler 提供 HTTP 请求处理器
// 本文件处理会话摘要相关的 API 请求
package handler

import (
	"github.com/gin-gonic/gin"

	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/service"
)

// SummaryHandler 摘要请求处理器
type SummaryHandler struct {
	summarySvc service.SummaryService
}

// NewSummaryHandler 创建摘要处理器实例
func NewSummaryHandler(summarySvc service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summarySvc: summarySvc}
}

// Summarize 生成会话摘要
// POST /summarize
// 请求体: request.SummarizeRequest
// 响应: respond.SummarizeRespond
func (h *SummaryHandler) Summarize(c *gin.Context) {
	var req request.SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.summarySvc.Summarize(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
