package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/studypal/pkg/utils/async"
)

func TestDispatch(t *testing.T) {
	t.Run("runs handler in background", func(t *testing.T) {
		done := make(chan struct{})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			close(done)
			return nil
		})

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler was not executed")
		}
	})

	t.Run("survives panic", func(t *testing.T) {
		var called atomic.Bool
		done := make(chan struct{})
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			defer close(done)
			called.Store(true)
			panic("boom")
		})

		<-done
		gt.B(t, called.Load()).True()
	})
}

func TestRaceDeadline(t *testing.T) {
	t.Run("returns value when call finishes first", func(t *testing.T) {
		v, err := async.RaceDeadline(context.Background(), time.Second, func(ctx context.Context) (string, error) {
			return "ok", nil
		})
		gt.NoError(t, err).Required()
		gt.Value(t, v).Equal("ok")
	})

	t.Run("returns error of the call", func(t *testing.T) {
		want := errors.New("upstream failed")
		_, err := async.RaceDeadline(context.Background(), time.Second, func(ctx context.Context) (int, error) {
			return 0, want
		})
		gt.Error(t, err).Is(want)
	})

	t.Run("discards slow call on timeout", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		_, err := async.RaceDeadline(context.Background(), 20*time.Millisecond, func(ctx context.Context) (string, error) {
			<-release
			return "late", nil
		})
		gt.Error(t, err).Is(async.ErrDeadlineExceeded)
	})

	t.Run("converts panic into error", func(t *testing.T) {
		_, err := async.RaceDeadline(context.Background(), time.Second, func(ctx context.Context) (string, error) {
			panic("unexpected")
		})
		gt.Error(t, err)
	})

	t.Run("zero timeout waits for completion", func(t *testing.T) {
		v, err := async.RaceDeadline(context.Background(), 0, func(ctx context.Context) (int, error) {
			time.Sleep(10 * time.Millisecond)
			return 42, nil
		})
		gt.NoError(t, err).Required()
		gt.Value(t, v).Equal(42)
	})
}
