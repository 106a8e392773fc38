package logger

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := Build(Options{Level: "info", JSON: true, Out: zapcore.AddSync(&buf)})
	l.Debug("hidden")
	l.Info("account destroyed", zap.String("account_id", "a1"))
	cleanup()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"account destroyed"`)
	assert.Contains(t, out, `"account_id":"a1"`)
}

func TestBuild_RotateWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	var buf bytes.Buffer
	l, cleanup := Build(Options{
		Level:  "info",
		JSON:   true,
		Out:    zapcore.AddSync(&buf),
		Rotate: FileRotate{Enable: true, Filename: file, MaxSizeMB: 1},
	})
	l.Info("rotated")
	cleanup()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "rotated")
}

func TestToWriterAndStdLog(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup := Build(Options{Level: "debug", JSON: true, Out: zapcore.AddSync(&buf)})
	defer cleanup()

	_, _ = ToWriter(l, zapcore.WarnLevel).Write([]byte("from gin\n"))
	undo := RedirectStdLog(l, zapcore.InfoLevel)
	log.Print("from stdlib")
	undo()

	out := buf.String()
	assert.Contains(t, out, `"msg":"from gin"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "from stdlib")
}
