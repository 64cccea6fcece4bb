package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/campushub/chatbot-go/app/bootstrap"
	"github.com/campushub/chatbot-go/internal/config"
	apperrors "github.com/campushub/chatbot-go/internal/errors"
	"github.com/campushub/chatbot-go/internal/knowledge"
	"github.com/campushub/chatbot-go/internal/logger"
	"github.com/campushub/chatbot-go/internal/storage"
	"go.uber.org/zap"
)

// AdminController 管理端文档上传入口
type AdminController struct {
	BaseController
	ingestor    *knowledge.Ingestor
	objectStore storage.ObjectStore // 可为nil
}

// NewAdminController 创建管理控制器
func NewAdminController(ingestor *knowledge.Ingestor, objectStore storage.ObjectStore) *AdminController {
	return &AdminController{ingestor: ingestor, objectStore: objectStore}
}

// resolve beego每个请求都会新建控制器实例，依赖在此从容器补齐
func (c *AdminController) resolve() bool {
	if c.ingestor != nil {
		return true
	}
	app := bootstrap.GetApp()
	if app == nil {
		return false
	}
	err := app.Container().Invoke(func(ingestor *knowledge.Ingestor, objectStore storage.ObjectStore) {
		c.ingestor = ingestor
		c.objectStore = objectStore
	})
	return err == nil
}

// Upload 接收multipart文件上传并同步执行摄取，
// 返回时文档已可被检索到。
func (c *AdminController) Upload() {
	if !c.resolve() {
		c.JSONError(http.StatusServiceUnavailable, "Service not ready")
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "No file part in the request")
		return
	}
	defer file.Close()

	// 客户端可能提交带路径的文件名，只保留基本名
	filename := filepath.Base(header.Filename)
	cfg := config.GetAppConfig()

	if !allowedExtension(filename, cfg.FileUpload.AllowedTypes) {
		c.JSONAppError(apperrors.NewInvalidFileFormatError(filename))
		return
	}
	if cfg.FileUpload.MaxSize > 0 && header.Size > cfg.FileUpload.MaxSize {
		c.JSONError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds maximum size of %d bytes", cfg.FileUpload.MaxSize))
		return
	}

	uploadDir := cfg.FileUpload.UploadPath
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		logger.Error("Failed to create upload directory", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	savedPath := filepath.Join(uploadDir, filename)
	if err := c.SaveToFile("file", savedPath); err != nil {
		logger.Error("Failed to save uploaded file",
			zap.String("file", filename), zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	c.archiveUpload(savedPath, filename)

	chunks, err := c.ingestor.Ingest(c.Ctx.Request.Context(), savedPath)
	if err != nil {
		logger.Error("Document ingestion failed",
			zap.String("file", filename), zap.Error(err))
		c.JSONAppError(err)
		return
	}
	if chunks == 0 {
		c.JSONAppError(apperrors.NewExtractionEmptyError())
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": fmt.Sprintf("File uploaded successfully with %d chunks.", chunks),
	})
}

// archiveUpload 把原始文件归档到对象存储，失败不影响摄取
func (c *AdminController) archiveUpload(savedPath, filename string) {
	if c.objectStore == nil {
		return
	}
	f, err := os.Open(savedPath)
	if err != nil {
		logger.Warn("Failed to reopen upload for archiving",
			zap.String("file", filename), zap.Error(err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if err := c.objectStore.Put(c.Ctx.Request.Context(), filename, f, info.Size()); err != nil {
		logger.Warn("Failed to archive upload to object storage",
			zap.String("file", filename), zap.Error(err))
	}
}

func allowedExtension(filename string, allowed []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(strings.TrimPrefix(a, ".")) {
			return true
		}
	}
	return false
}
