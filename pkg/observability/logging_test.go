package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WARN, &buf)

	logger.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected message in output, got %q", buf.String())
	}
}

func TestWithFieldsMerges(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(INFO, &buf).WithFields(map[string]interface{}{"component": "coarse"})
	logger.Info("built", map[string]interface{}{"centroids": 4})

	out := buf.String()
	if !strings.Contains(out, "component=coarse") || !strings.Contains(out, "centroids=4") {
		t.Fatalf("expected merged fields in output, got %q", out)
	}
}
