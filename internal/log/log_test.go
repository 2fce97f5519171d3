package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLevelFrom(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, levelFrom("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, levelFrom("warn"))
	assert.Equal(t, logrus.ErrorLevel, levelFrom("ERROR"))
	assert.Equal(t, logrus.InfoLevel, levelFrom(""))
	assert.Equal(t, logrus.InfoLevel, levelFrom("TRACE-ISH"))
}

func TestFormatterFrom(t *testing.T) {
	assert.IsType(t, &logrus.JSONFormatter{}, formatterFrom("json"))
	assert.IsType(t, &logrus.TextFormatter{}, formatterFrom(""))
	assert.NotNil(t, GetLogger())
}
