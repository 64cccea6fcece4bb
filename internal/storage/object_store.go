package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// ObjectStore 上传文件归档存储抽象
type ObjectStore interface {
	// Put 保存对象，key在store内唯一
	Put(ctx context.Context, key string, reader io.Reader, size int64) error
	// Get 读取对象内容，调用方负责Close
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Ready 存储后端是否可用
	Ready() bool
}

// ContentTypeFor 按扩展名推断MIME类型
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
