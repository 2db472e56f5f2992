package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer. The returned cleanup
// restores the previous writer, level and format.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()
	originalLevel := GetLevel()
	originalFormat, _ := currentFormat.Load().(string)

	reconfigure()

	return buf, func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		SetLevel(originalLevel.String())
		SetFormat(originalFormat)
	}
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	return entry
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)
			SetFormat("text")

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.hidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	SetLevel("warn")
	assert.Equal(t, LevelWarn, GetLevel())

	SetLevel("bogus")
	assert.Equal(t, LevelWarn, GetLevel(), "invalid levels are ignored")

	SetLevel("WARNING")
	assert.Equal(t, LevelWarn, GetLevel())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

// ============================================================================
// Format Tests
// ============================================================================

func TestTextFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	Info("service registered", KeyService, "simplepush.datastore.default", KeyMode, "ACTIVE", "note", "two words")

	out := buf.String()
	assert.Contains(t, out, "[INFO] service registered")
	assert.Contains(t, out, "service=simplepush.datastore.default")
	assert.Contains(t, out, "mode=ACTIVE")
	assert.Contains(t, out, `note="two words"`)
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTextFormatGroups(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	With(KeyServer, "default").WithGroup("redis").Info("connecting", KeyHost, "localhost", slog.Group("pool", slog.Int("size", 4)))

	out := buf.String()
	assert.Contains(t, out, "server=default")
	assert.Contains(t, out, "redis.host=localhost")
	assert.Contains(t, out, "redis.pool.size=4")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")

	Info("provisioned", KeyServer, "default", KeyKind, "jpa")

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "provisioned", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "default", entry["server"])
	assert.Equal(t, "jpa", entry["kind"])
}

func TestFormatSwitchingIgnoresInvalid(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")
	SetFormat("xml")

	Info("still json")
	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "still json", entry["msg"])
}

// ============================================================================
// Context Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("json")

		lc := NewLogContext("provision").
			WithServer("default").
			WithKind("redis").
			WithService("simplepush.datastore.default").
			WithTrace("abc123", "xyz789")
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "operation completed", "extra_field", "value")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "abc123", entry["trace_id"])
		assert.Equal(t, "xyz789", entry["span_id"])
		assert.Equal(t, "provision", entry["operation"])
		assert.Equal(t, "default", entry["server"])
		assert.Equal(t, "redis", entry["kind"])
		assert.Equal(t, "simplepush.datastore.default", entry["service"])
		assert.Equal(t, "value", entry["extra_field"])
	})

	t.Run("EmptyFieldsOmitted", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("json")

		ctx := WithContext(context.Background(), NewLogContext("plan"))
		WarnCtx(ctx, "partial")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "plan", entry["operation"])
		assert.NotContains(t, entry, "server")
		assert.NotContains(t, entry, "trace_id")
	})

	t.Run("ContextWithoutLogContextHandled", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		require.NotPanics(t, func() {
			InfoCtx(context.Background(), "test message")
		})
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("DebugCtxFiltered", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		DebugCtx(context.Background(), "hidden")
		assert.Empty(t, buf.String())
	})
}

func TestLogContext(t *testing.T) {
	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("provision").WithServer("a")
		clone := lc.Clone()
		clone.Server = "b"
		assert.Equal(t, "a", lc.Server)
	})

	t.Run("CloneNil", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithKind("jpa"))
		assert.Zero(t, lc.DurationMs())
	})

	t.Run("WithersLeaveOriginalUnchanged", func(t *testing.T) {
		lc := NewLogContext("provision")
		lc2 := lc.WithKind("jpa")
		assert.Equal(t, "jpa", lc2.Kind)
		assert.Empty(t, lc.Kind)
		assert.False(t, lc2.StartTime.IsZero())
	})

	t.Run("FromContextNil", func(t *testing.T) {
		//nolint:staticcheck // nil context is tolerated on purpose
		assert.Nil(t, FromContext(nil))
	})
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, KeyServer, Server("default").Key)
	assert.Equal(t, KeyKind, Kind("jpa").Key)
	assert.Equal(t, "a,b", Dependencies([]string{"a", "b"}).Value.String())

	assert.Equal(t, "", Err(nil).Key)
	attr := Err(errors.New("boom"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "boom", attr.Value.String())
}

func TestPrintfStyleLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	Infof("provisioned %d servers", 3)
	Warnf("skipped %s", "legacy")

	assert.Contains(t, buf.String(), "provisioned 3 servers")
	assert.Contains(t, buf.String(), "skipped legacy")
}

// ============================================================================
// Init Tests
// ============================================================================

func TestInit(t *testing.T) {
	t.Run("InitWithWriter", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		buf := new(bytes.Buffer)
		InitWithWriter(buf, "DEBUG", "text", false)

		Debug("test message")
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("InitWithFile", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		path := filepath.Join(t.TempDir(), "pushstore.log")
		require.NoError(t, Init(Config{Level: "INFO", Format: "json", Output: path}))
		Info("to file")

		mu.Lock()
		if logFile != nil {
			_ = logFile.Close()
			logFile = nil
		}
		mu.Unlock()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"to file"`)
	})

	t.Run("InitRejectsBadLevel", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		assert.Error(t, Init(Config{Level: "LOUD"}))
	})

	t.Run("InitWithEmptyConfig", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		require.NoError(t, Init(Config{}))
	})
}

func BenchmarkLogDisabled(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "ERROR", "text", false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Debug("test message", "key", "value")
	}
}

func BenchmarkLogCtx(b *testing.B) {
	InitWithWriter(new(bytes.Buffer), "DEBUG", "json", false)
	ctx := WithContext(context.Background(), NewLogContext("provision").WithServer("default"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InfoCtx(ctx, "test message", "count", i)
	}
}
