package storage

import (
	"commerce-backend/config"
	"context"
	"fmt"
)

// Store 导出文件的存储后端
type Store interface {
	// Save 写入对象并返回可访问的位置
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// New 按 EXPORT_STORAGE 选择存储后端
func New(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.ExportStorage {
	case "", "local":
		return NewLocalStorage(cfg.LocalStoragePath)
	case "s3":
		return NewS3Client(cfg.S3Region, cfg.S3Bucket)
	case "gcs":
		return NewGCSClient(ctx, cfg.GCSBucketName, cfg.GCSCredentialsFile)
	default:
		return nil, fmt.Errorf("unknown export storage %q", cfg.ExportStorage)
	}
}
