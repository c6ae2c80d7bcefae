// Package progress shows a spinner while one blocking step runs.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"

	"github.com/kompox/kprotect/domain/model"
)

// TickInterval is how often a '#' is printed when the writer is not a terminal.
var TickInterval = 2 * time.Second

// Run executes fn on a separate goroutine and blocks until it returns or timeout
// elapses. On timeout the context passed to fn is cancelled and an error wrapping
// model.ErrTimeout is returned without waiting for fn. A zero timeout waits forever.
func Run(ctx context.Context, w io.Writer, title string, timeout time.Duration, fn func(ctx context.Context) error) error {
	var (
		stepCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		stepCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(stepCtx) }()

	ind := newIndicator(w, title)
	ind.start()

	select {
	case err := <-done:
		ind.stop(err == nil)
		return err
	case <-stepCtx.Done():
		// fn may have finished at the same instant
		select {
		case err := <-done:
			ind.stop(err == nil)
			return err
		default:
		}
		ind.stop(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w after %s", title, model.ErrTimeout, timeout)
		}
		return stepCtx.Err()
	}
}

type indicator struct {
	w     io.Writer
	title string
	spin  *spinner.Spinner

	quit chan struct{}
	wg   sync.WaitGroup
}

func newIndicator(w io.Writer, title string) *indicator {
	ind := &indicator{w: w, title: title}
	if isTerminal(w) {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
		s.Suffix = " " + title
		ind.spin = s
	}
	return ind
}

func (i *indicator) start() {
	if i.w == nil {
		return
	}
	if i.spin != nil {
		i.spin.Start()
		return
	}
	fmt.Fprintf(i.w, "%s ", i.title)
	i.quit = make(chan struct{})
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		t := time.NewTicker(TickInterval)
		defer t.Stop()
		for {
			select {
			case <-i.quit:
				return
			case <-t.C:
				fmt.Fprint(i.w, "#")
			}
		}
	}()
}

func (i *indicator) stop(ok bool) {
	if i.w == nil {
		return
	}
	mark := "done"
	if !ok {
		mark = "failed"
	}
	if i.spin != nil {
		i.spin.FinalMSG = fmt.Sprintf("%s ... %s\n", i.title, mark)
		i.spin.Stop()
		return
	}
	close(i.quit)
	i.wg.Wait()
	fmt.Fprintf(i.w, " %s\n", mark)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
