package router

import (
	"github.com/campushub/chatbot-go/app/controllers"
	"github.com/campushub/chatbot-go/app/middleware"
	"github.com/campushub/chatbot-go/internal/config"
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Init 注册路由。控制器以零值注册，beego每个请求都会通过反射
// 新建实例，依赖在控制器内部从容器补齐，因此必须在
// bootstrap.SetGlobalApp 之后调用。
func Init() {
	web.InsertFilter("/*", web.BeforeRouter, middleware.MarkStart)
	web.InsertFilter("/*", web.FinishRouter, middleware.AccessLog, web.WithReturnOnOutput(false))

	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	// 管理端
	web.Router("/api/admin/upload", &controllers.AdminController{}, "post:Upload")

	// 对话
	web.Router("/api/chat", &controllers.ChatController{}, "post:Chat")
	web.Router("/api/chat/stream", &controllers.ChatController{}, "post:Stream")

	// 线程管理
	web.Router("/api/threads", &controllers.ThreadController{}, "get:List")
	web.Router("/api/history", &controllers.ThreadController{}, "get:History")
	web.Router("/api/threads/new", &controllers.ThreadController{}, "post:New")
	web.Router("/api/threads/switch", &controllers.ThreadController{}, "post:Switch")
	web.Router("/api/reset_chat", &controllers.ThreadController{}, "post:Reset")

	if config.GetAppConfig().Prometheus.Enabled {
		web.Handler("/metrics", promhttp.Handler())
	}
}
