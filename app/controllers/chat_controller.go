package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/campushub/chatbot-go/app/bootstrap"
	"github.com/campushub/chatbot-go/internal/chat"
	"github.com/campushub/chatbot-go/internal/logger"
	"go.uber.org/zap"
)

// ChatController 学生对话入口
type ChatController struct {
	BaseController
	processor *chat.TurnProcessor
	threads   *chat.ThreadManager
}

// NewChatController 创建对话控制器
func NewChatController(processor *chat.TurnProcessor, threads *chat.ThreadManager) *ChatController {
	return &ChatController{processor: processor, threads: threads}
}

// resolve beego每个请求都会新建控制器实例，依赖在此从容器补齐
func (c *ChatController) resolve() bool {
	if c.processor != nil {
		return true
	}
	app := bootstrap.GetApp()
	if app == nil {
		return false
	}
	err := app.Container().Invoke(func(processor *chat.TurnProcessor, threads *chat.ThreadManager) {
		c.processor = processor
		c.threads = threads
	})
	return err == nil
}

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

func (c *ChatController) parseRequest() (chatRequest, bool) {
	var req chatRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	return req, true
}

// resolveThread 确定本轮对话所属线程。显式指定thread_id时切换过去，
// 否则沿用会话当前的活跃线程。
func (c *ChatController) resolveThread(req chatRequest) string {
	ctx := c.Ctx.Request.Context()
	sessionID := c.sessionID()
	if req.ThreadID != "" {
		c.threads.Switch(ctx, sessionID, req.ThreadID)
		return req.ThreadID
	}
	return c.threads.ActiveThread(ctx, sessionID)
}

// Chat 处理一轮对话，响应包含完整回复与线程ID
func (c *ChatController) Chat() {
	if !c.resolve() {
		c.JSONError(http.StatusServiceUnavailable, "Service not ready")
		return
	}

	req, ok := c.parseRequest()
	if !ok {
		return
	}

	threadID := c.resolveThread(req)
	answer, err := c.processor.ProcessTurn(c.Ctx.Request.Context(), threadID, req.Message)
	if err != nil {
		c.JSONAppError(err)
		return
	}
	c.threads.RecordTurn(c.Ctx.Request.Context(), c.sessionID(), threadID,
		strings.TrimSpace(req.Message), answer)

	c.JSON(http.StatusOK, map[string]interface{}{
		"response":  answer,
		"thread_id": threadID,
	})
}

// Stream 流式对话，以SSE逐片段推送回复。
// 客户端断开不会中断生成，完整回复照常落库。
func (c *ChatController) Stream() {
	if !c.resolve() {
		c.JSONError(http.StatusServiceUnavailable, "Service not ready")
		return
	}

	req, ok := c.parseRequest()
	if !ok {
		return
	}

	threadID := c.resolveThread(req)
	fragments, err := c.processor.ProcessTurnStream(c.Ctx.Request.Context(), threadID, req.Message)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	w := c.Ctx.ResponseWriter
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := c.Ctx.ResponseWriter.ResponseWriter.(http.Flusher)

	var assembled strings.Builder
	disconnected := false
	for fragment := range fragments {
		assembled.WriteString(fragment)
		if disconnected {
			continue
		}
		payload, err := json.Marshal(map[string]string{
			"delta":     fragment,
			"thread_id": threadID,
		})
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// 消费者断开，排空剩余片段让生成端自行收尾
			logger.Debug("SSE client disconnected", zap.String("thread_id", threadID))
			disconnected = true
			continue
		}
		if canFlush {
			flusher.Flush()
		}
	}

	bgCtx := context.WithoutCancel(c.Ctx.Request.Context())
	if disconnected {
		// 断开后片段不再送达，缓存拿不到完整回复，作废待重载
		c.threads.Invalidate(bgCtx, c.sessionID())
		return
	}
	c.threads.RecordTurn(bgCtx, c.sessionID(), threadID,
		strings.TrimSpace(req.Message), assembled.String())

	fmt.Fprint(w, "data: [DONE]\n\n")
	if canFlush {
		flusher.Flush()
	}

	// SSE响应自己写流，跳过beego的渲染
	c.EnableRender = false
}
