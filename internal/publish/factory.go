package publish

import (
	"context"
	"strings"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
)

func New(ctx context.Context, cfg config.PublishConfig) (Storage, error) {
	method := strings.ToLower(strings.TrimSpace(cfg.Method))
	switch method {
	case "", "local":
		baseDir := strings.TrimSpace(cfg.Local.Directory)
		if baseDir == "" {
			baseDir = "data/site"
		}
		return NewLocal(baseDir), nil
	case "s3":
		return NewS3(ctx, cfg.S3)
	default:
		return nil, ErrUnknownPublisher
	}
}
