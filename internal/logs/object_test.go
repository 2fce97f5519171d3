package logs

import (
	"testing"

	"github.com/ignatij/kyubey/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectSource(t *testing.T) {
	source, err := NewObjectSource(config.ObjectStoreConfig{
		Endpoint: "localhost:9000",
		Bucket:   "airflow-logs",
		Prefix:   "logs/",
	})
	require.NoError(t, err)

	t.Run("ObjectName", func(t *testing.T) {
		assert.Equal(t, "logs/dag_id=d/run_id=r/task_id=t/attempt=1.log", source.objectName("dag_id=d/run_id=r/task_id=t/attempt=1.log"))
		bare := &ObjectSource{bucket: "b"}
		assert.Equal(t, "a/b.log", bare.objectName("a/b.log"))
	})

	t.Run("MissingKeyIsNotFound", func(t *testing.T) {
		err := source.classify(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, "x")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("OtherErrorsAreInternal", func(t *testing.T) {
		err := source.classify(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, "x")
		assert.NotErrorIs(t, err, ErrNotFound)

		err = source.classify(errors.New("dial tcp: refused"), "x")
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestNewSource(t *testing.T) {
	source, err := NewSource(config.LogsConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, source)

	source, err = NewSource(config.LogsConfig{ObjectStore: config.ObjectStoreConfig{Endpoint: "localhost:9000", Bucket: "b"}})
	require.NoError(t, err)
	assert.IsType(t, &ObjectSource{}, source)
}
