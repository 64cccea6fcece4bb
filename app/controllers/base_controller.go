package controllers

import (
	"net/http"

	apperrors "github.com/campushub/chatbot-go/internal/errors"
	"github.com/beego/beego/v2/server/web"
	"github.com/google/uuid"
)

const sessionCookieName = "chat_session"

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 按错误分类映射HTTP状态码，未知错误统一按500处理
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)
	c.JSONError(appErr.HTTPCode, appErr.Message)
}

// sessionID 返回当前请求的会话标识，首次访问时下发cookie
func (c *BaseController) sessionID() string {
	if sid := c.Ctx.GetCookie(sessionCookieName); sid != "" {
		return sid
	}
	sid := uuid.NewString()
	c.Ctx.SetCookie(sessionCookieName, sid, 7*24*3600, "/")
	return sid
}
