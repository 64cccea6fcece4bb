package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/campushub/chatbot-go/app/bootstrap"
	"github.com/campushub/chatbot-go/internal/chat"
)

// ThreadController 线程管理：列表、新建、切换、重置
type ThreadController struct {
	BaseController
	threads *chat.ThreadManager
}

// NewThreadController 创建线程控制器
func NewThreadController(threads *chat.ThreadManager) *ThreadController {
	return &ThreadController{threads: threads}
}

// resolve beego每个请求都会新建控制器实例，依赖在此从容器补齐
func (c *ThreadController) resolve() bool {
	if c.threads != nil {
		return true
	}
	app := bootstrap.GetApp()
	if app == nil {
		return false
	}
	err := app.Container().Invoke(func(threads *chat.ThreadManager) {
		c.threads = threads
	})
	return err == nil
}

// List 返回当前会话的线程列表，活跃线程排在最前
func (c *ThreadController) List() {
	if !c.resolve() {
		c.JSONError(http.StatusServiceUnavailable, "Service not ready")
		return
	}

	infos := c.threads.ListThreads(c.Ctx.Request.Context(), c.sessionID())
	c.JSONSuccess(map[string]interface{}{
		"threads": infos,
	})
}

// New 开启一个新线程并切换为活跃线程
func (c *ThreadController) New() {
	if !c.resolve() {
		c.JSONError(http.StatusServiceUnavailable, "Service not ready")
		return
	}

	threadID := c.threads.NewThread(c.Ctx.Request.Context(), c.sessionID())
	c.JSONSuccess(map[string]interface{}{
		"thread_id": threadID,
	})
}

// Switch 切换活跃线程，后续轮次在目标线程的历史上继续
func (c *ThreadController) Switch() {
	if !c.resolve() {
		c.JSONError(http.StatusServiceUnavailable, "Service not ready")
		return
	}

	var req struct {
		ThreadID string `json:"thread_id"`
	}
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil || req.ThreadID == "" {
		c.JSONError(http.StatusBadRequest, "thread_id is required")
		return
	}

	history := c.threads.Switch(c.Ctx.Request.Context(), c.sessionID(), req.ThreadID)
	c.JSONSuccess(map[string]interface{}{
		"thread_id": req.ThreadID,
		"messages":  history,
	})
}

// History 返回活跃线程的完整消息历史，供客户端重绘对话
func (c *ThreadController) History() {
	if !c.resolve() {
		c.JSONError(http.StatusServiceUnavailable, "Service not ready")
		return
	}

	ctx := c.Ctx.Request.Context()
	sessionID := c.sessionID()
	c.JSONSuccess(map[string]interface{}{
		"thread_id": c.threads.ActiveThread(ctx, sessionID),
		"messages":  c.threads.History(ctx, sessionID),
	})
}

// Reset 重置对话。历史永不删除，重置即切到一个全新线程，
// 旧线程仍可通过切换找回。
func (c *ThreadController) Reset() {
	if !c.resolve() {
		c.JSONError(http.StatusServiceUnavailable, "Service not ready")
		return
	}

	threadID := c.threads.NewThread(c.Ctx.Request.Context(), c.sessionID())
	c.JSONSuccess(map[string]interface{}{
		"thread_id": threadID,
		"message":   "Conversation reset",
	})
}
