package queue

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

func TestPingCheck(t *testing.T) {
	if err := PingCheck(fakePinger{})(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	down := errors.New("connection refused")
	err := PingCheck(fakePinger{err: down})(context.Background())
	if !errors.Is(err, down) {
		t.Errorf("expected wrapped ping error, got %v", err)
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	if _, err := NewRedisClient("::bad"); err == nil {
		t.Error("expected parse error")
	}
}

func TestLogger_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf))

	l.Warn("retrying ", "task")
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "retrying task") {
		t.Errorf("unexpected log output: %s", out)
	}
	if !strings.Contains(out, `"component":"asynq"`) {
		t.Errorf("expected component field, got %s", out)
	}
}
