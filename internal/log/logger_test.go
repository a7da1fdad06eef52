package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: "parser", Handler: slog.NewTextHandler(&buf, nil)})

	l.InfoContext(context.Background(), "Parsed input", "account_id", "12345678")

	out := buf.String()
	assert.Contains(t, out, "component=parser")
	assert.Contains(t, out, "account_id=12345678")
}

func TestLoggerWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: "http", Handler: slog.NewTextHandler(&buf, nil)})

	l.With("request_id", "abc").WarnContext(context.Background(), "Slow request")

	out := buf.String()
	assert.Contains(t, out, "component=http")
	assert.Contains(t, out, "request_id=abc")
	assert.Contains(t, out, "level=WARN")
}
