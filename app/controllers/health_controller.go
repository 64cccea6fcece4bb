package controllers

import (
	"net/http"

	"github.com/campushub/chatbot-go/app/bootstrap"
	"github.com/campushub/chatbot-go/internal/database"
	"github.com/campushub/chatbot-go/internal/knowledge"
)

// RootController 服务信息入口
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Campus Chatbot API"})
}

// HealthController 健康检查，汇总各依赖组件的可用状态
type HealthController struct {
	BaseController
	dbChecker *database.HealthChecker
	store     knowledge.VectorStore
	embedder  knowledge.Embedder
	resolved  bool
}

// NewHealthController 创建健康检查控制器
func NewHealthController(dbChecker *database.HealthChecker, store knowledge.VectorStore, embedder knowledge.Embedder) *HealthController {
	return &HealthController{dbChecker: dbChecker, store: store, embedder: embedder, resolved: true}
}

// resolve beego每个请求都会新建控制器实例，依赖在此从容器补齐
func (c *HealthController) resolve() {
	if c.resolved {
		return
	}
	c.resolved = true
	app := bootstrap.GetApp()
	if app == nil {
		return
	}
	_ = app.Container().Invoke(func(dbChecker *database.HealthChecker, store knowledge.VectorStore, embedder knowledge.Embedder) {
		c.dbChecker = dbChecker
		c.store = store
		c.embedder = embedder
	})
}

// Health 数据库不健康时整体降级为503，向量库和嵌入服务
// 只影响检索质量，不拉低整体状态。
func (c *HealthController) Health() {
	c.resolve()

	components := map[string]interface{}{}
	healthy := true

	if c.dbChecker != nil {
		result := c.dbChecker.Result()
		components["database"] = map[string]interface{}{
			"healthy":    result.Healthy,
			"last_check": result.LastCheck,
		}
		if !result.Healthy {
			healthy = false
		}
	}
	if c.store != nil {
		components["vector_store"] = map[string]bool{"ready": c.store.Ready()}
	}
	if c.embedder != nil {
		components["embedder"] = map[string]bool{"ready": c.embedder.Ready()}
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}
