package progress

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kompox/kprotect/domain/model"
)

// lockedBuffer guards bytes.Buffer against the ticker goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunSuccess(t *testing.T) {
	old := TickInterval
	TickInterval = 5 * time.Millisecond
	defer func() { TickInterval = old }()

	var out lockedBuffer
	err := Run(context.Background(), &out, "Installing sensor", time.Second, func(ctx context.Context) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := out.String()
	if !strings.HasPrefix(s, "Installing sensor ") || !strings.Contains(s, "#") || !strings.HasSuffix(s, " done\n") {
		t.Errorf("unexpected output %q", s)
	}
}

func TestRunError(t *testing.T) {
	want := errors.New("helm failed")
	var out lockedBuffer
	err := Run(context.Background(), &out, "step", time.Second, func(ctx context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want %v", err, want)
	}
	if !strings.HasSuffix(out.String(), " failed\n") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRunTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	err := Run(context.Background(), nil, "wait", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		time.Sleep(50 * time.Millisecond)
		return ctx.Err()
	})
	if !errors.Is(err, model.ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("step context was not cancelled")
	}
}

func TestRunParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, nil, "wait", time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
