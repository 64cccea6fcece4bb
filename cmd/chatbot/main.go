package main

import (
	"log"
	"strconv"

	"github.com/campushub/chatbot-go/app/bootstrap"
	"github.com/campushub/chatbot-go/app/router"
	"github.com/campushub/chatbot-go/internal/config"
	"github.com/campushub/chatbot-go/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()
	bootstrap.SetGlobalApp(app)

	router.Init()

	web.BConfig.AppName = "Campus Chatbot"
	web.BConfig.CopyRequestBody = true
	if port, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("Starting Campus Chatbot",
		zap.Int("port", web.BConfig.Listen.HTTPPort),
		zap.String("env", config.AppConfig.Server.Env))
	web.Run()
}
