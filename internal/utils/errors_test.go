package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorKindsAndWrapping(t *testing.T) {
	err := InvalidError("engine.Apply", "invalid criteria", fs.ErrInvalid)
	assert.Equal(t, "engine.Apply: invalid criteria: invalid argument", err.Error())
	assert.ErrorIs(t, err, fs.ErrInvalid)
	assert.Equal(t, KindInvalid, KindOf(err))

	wrapped := fmt.Errorf("outer: %w", UnavailableError("cache.Get", "down", nil))
	assert.Equal(t, KindUnavailable, KindOf(wrapped))
	assert.Equal(t, "cache.Get: down", errors.Unwrap(wrapped).Error())

	assert.Equal(t, KindInternal, KindOf(NewAppError("op", "boom", nil)))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", true)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)

	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
