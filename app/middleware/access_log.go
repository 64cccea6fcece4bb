package middleware

import (
	"time"

	"github.com/campushub/chatbot-go/internal/logger"
	beecontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

const startTimeKey = "request_start_time"

// MarkStart 记录请求开始时间，配合AccessLog使用
func MarkStart(ctx *beecontext.Context) {
	ctx.Input.SetData(startTimeKey, time.Now())
}

// AccessLog 请求完成后输出一条结构化访问日志
func AccessLog(ctx *beecontext.Context) {
	var elapsed time.Duration
	if start, ok := ctx.Input.GetData(startTimeKey).(time.Time); ok {
		elapsed = time.Since(start)
	}

	logger.Info("http request",
		zap.String("method", ctx.Input.Method()),
		zap.String("path", ctx.Input.URL()),
		zap.Int("status", ctx.ResponseWriter.Status),
		zap.Duration("elapsed", elapsed),
		zap.String("ip", ctx.Input.IP()))
}
