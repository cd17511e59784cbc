// Package summary 提供会话摘要的业务逻辑
// 摘要由外部服务生成；未配置外部服务时回退到本地启发式摘要，
// 便于演示环境不依赖第三方接口
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"weitalk_relay_server/internal/config"
	"weitalk_relay_server/internal/dto/request"
	"weitalk_relay_server/internal/dto/respond"
	"weitalk_relay_server/pkg/errorx"
)

// summaryService 摘要业务逻辑实现
type summaryService struct {
	baseUrl string
	apiKey  string
	client  *http.Client
}

// NewSummaryService 构造函数，从配置读取外部摘要服务地址
func NewSummaryService(conf config.SummarizerConfig) *summaryService {
	timeout := time.Duration(conf.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &summaryService{
		baseUrl: conf.BaseUrl,
		apiKey:  conf.ApiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Summarize 生成会话摘要
func (s *summaryService) Summarize(ctx context.Context, req request.SummarizeRequest) (*respond.SummarizeRespond, error) {
	if s.baseUrl == "" {
		return &respond.SummarizeRespond{Summary: mockSummary(req)}, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		zap.L().Error("序列化摘要请求失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseUrl, bytes.NewReader(body))
	if err != nil {
		zap.L().Error("构造摘要请求失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		zap.L().Error("调用摘要服务失败", zap.Error(err))
		return nil, errorx.New(errorx.CodeSummarizerError, "摘要服务不可用")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		zap.L().Error("摘要服务返回异常",
			zap.Int("status", httpResp.StatusCode), zap.ByteString("body", data))
		return nil, errorx.Newf(errorx.CodeSummarizerError, "摘要服务返回 %d", httpResp.StatusCode)
	}

	var result respond.SummarizeRespond
	if err := json.NewDecoder(httpResp.Body).Decode(&result); err != nil {
		zap.L().Error("解析摘要响应失败", zap.Error(err))
		return nil, errorx.New(errorx.CodeSummarizerError, "摘要服务响应不合法")
	}
	if result.Summary == "" {
		return nil, errorx.New(errorx.CodeSummarizerError, "摘要服务未返回内容")
	}
	return &result, nil
}

// mockSummary 本地启发式摘要
// 不做语义分析，只根据关键字和最近消息拼出结构化预览
func mockSummary(req request.SummarizeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Chat Summary for %s**\n\n", req.ChatName)
	fmt.Fprintf(&b, "💬 **Message Count:** %d messages\n\n", len(req.Messages))
	if len(req.Messages) == 0 {
		b.WriteString("No messages to summarize.")
		return b.String()
	}

	b.WriteString("🔍 **Key Points:**\n")
	b.WriteString("• Recent conversation activity detected\n")
	recent := req.Messages
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	if containsWord(recent, "meeting") {
		b.WriteString("• Meeting or appointment mentioned\n")
	}
	if containsWord(recent, "help") {
		b.WriteString("• Help or assistance requested\n")
	}
	if containsWord(recent, "thanks") {
		b.WriteString("• Appreciation or gratitude expressed\n")
	}

	last := req.Messages[len(req.Messages)-1]
	sender := "Contact"
	if last.Sent {
		sender = "You"
	}
	fmt.Fprintf(&b, "\n📝 **Latest Message:**\n%q - %s\n\n", last.Text, sender)
	fmt.Fprintf(&b, "⏰ **Conversation Tone:** %s\n", conversationTone(req.Messages))
	if needsResponse(last) {
		b.WriteString("🎯 **Action Required:** Response recommended")
	} else {
		b.WriteString("🎯 **Action Required:** No immediate action needed")
	}
	return b.String()
}

func containsWord(messages []request.SummaryMessage, word string) bool {
	for _, message := range messages {
		if strings.Contains(strings.ToLower(message.Text), word) {
			return true
		}
	}
	return false
}

func conversationTone(messages []request.SummaryMessage) string {
	var all strings.Builder
	for _, message := range messages {
		all.WriteString(strings.ToLower(message.Text))
		all.WriteByte(' ')
	}
	text := all.String()
	switch {
	case strings.Contains(text, "urgent") || strings.Contains(text, "asap") || strings.Contains(text, "emergency"):
		return "Urgent"
	case strings.Contains(text, "thanks") || strings.Contains(text, "great") || strings.Contains(text, "awesome"):
		return "Positive"
	case strings.Contains(text, "sorry") || strings.Contains(text, "problem") || strings.Contains(text, "issue"):
		return "Concerned"
	default:
		return "Neutral"
	}
}

func needsResponse(last request.SummaryMessage) bool {
	if last.Sent {
		return false
	}
	text := strings.ToLower(last.Text)
	return strings.Contains(text, "?") || strings.Contains(text, "please") ||
		strings.Contains(text, "can you") || strings.Contains(text, "could you")
}
