package logs

import (
	"context"
	"io"
	"path"

	"github.com/ignatij/kyubey/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// ObjectSource reads logs from an S3-compatible bucket, as written by
// remote task logging.
type ObjectSource struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewObjectSource(cfg config.ObjectStoreConfig) (*ObjectSource, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create object store client")
	}
	return &ObjectSource{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *ObjectSource) objectName(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

func (s *ObjectSource) Read(ctx context.Context, rel string) ([]byte, error) {
	name := s.objectName(rel)
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.classify(err, name)
	}
	defer obj.Close()
	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.classify(err, name)
	}
	return content, nil
}

func (s *ObjectSource) classify(err error, name string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.Wrapf(ErrNotFound, "object %s/%s", s.bucket, name)
	}
	return errors.Wrapf(err, "read object %s/%s", s.bucket, name)
}

// NewSource picks the object store when a bucket is configured and the local
// directory otherwise.
func NewSource(cfg config.LogsConfig) (Source, error) {
	if cfg.ObjectStore.Enabled() {
		source, err := NewObjectSource(cfg.ObjectStore)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	return NewFileSource(cfg.BasePath), nil
}
