package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vibast-solutions/ms-go-blog-auth/app/service"
)

type stubDeleter struct {
	rows  int64
	err   error
	calls int
}

func (d *stubDeleter) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	d.calls++
	return d.rows, d.err
}

func TestJanitor_Sweep(t *testing.T) {
	tokens := &stubDeleter{rows: 3}
	codes := &stubDeleter{err: errors.New("db down")}

	janitor := service.NewJanitor(time.Minute).
		Register("refresh_tokens", tokens).
		Register("one_time_codes", codes)

	removed := janitor.Sweep(context.Background())
	assert.Equal(t, int64(3), removed["refresh_tokens"])
	_, ok := removed["one_time_codes"]
	assert.False(t, ok, "failed target must not report a count")
	assert.Equal(t, 1, tokens.calls)
	assert.Equal(t, 1, codes.calls)
}

func TestJanitor_RunStopsWithContext(t *testing.T) {
	target := &stubDeleter{}
	janitor := service.NewJanitor(time.Hour).Register("refresh_tokens", target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
