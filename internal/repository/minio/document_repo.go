package minio

import (
	"bytes"
	"context"

	"github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// DocumentRepo хранит отрендеренные документы в MinIO, откуда их забирает печатный коллаборатор.
type DocumentRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewDocumentRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *DocumentRepo {
	return &DocumentRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает объект и возвращает его ключ. Объект с тем же ключом перезаписывается.
func (d *DocumentRepo) Upload(ctx context.Context, obj *domain.StoredObject) (string, error) {
	reader := bytes.NewReader(obj.Data)

	info, err := d.mc.PutObject(ctx, d.cfg.BucketName, obj.ObjectKey, reader, int64(len(obj.Data)), minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: obj.Metadata,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Delete удаляет объект из MinIO по указанному ключу.
func (d *DocumentRepo) Delete(ctx context.Context, key string) error {
	if err := d.mc.RemoveObject(ctx, d.cfg.BucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
