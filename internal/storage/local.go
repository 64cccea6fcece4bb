package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore 本地目录存储，未配置对象存储时的默认实现
type LocalStore struct {
	dir string
}

// NewLocalStore 创建本地存储，目录不存在时创建
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Put 写入文件。key被剥离路径成分，防止目录穿越。
func (s *LocalStore) Put(_ context.Context, key string, reader io.Reader, _ int64) error {
	path := filepath.Join(s.dir, filepath.Base(key))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return err
	}
	return f.Sync()
}

// Get 读取文件
func (s *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, filepath.Base(key)))
}

// Ready 目录可访问即就绪
func (s *LocalStore) Ready() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}
