package orchestration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/agbru/linemax/internal/dispatch"
	"github.com/agbru/linemax/internal/dispatch/loop"
	"github.com/agbru/linemax/internal/dispatch/mocks"
	"github.com/agbru/linemax/internal/dispatch/threads"
	"github.com/agbru/linemax/internal/linestore"
	"github.com/agbru/linemax/internal/partition"
)

// TestOrchestrationNoDeadlock_Backends verifies that Run completes for
// worker counts well above the line count and for many small ranges.
func TestOrchestrationNoDeadlock_Backends(t *testing.T) {
	input := strings.Repeat("line of text\n", 5000)
	testCases := []struct {
		name       string
		dispatcher dispatch.Dispatcher
		maxLines   int
		workers    int
	}{
		{"threads_many_workers", threads.New(nil), 5000, 256},
		{"threads_more_workers_than_lines", threads.New(nil), 3, 64},
		{"loop_many_workers", loop.New(nil, 0), 5000, 256},
		{"loop_chunk_one", loop.New(nil, 1), 5000, 8},
		{"single_worker", threads.New(nil), 5000, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			path := writeInput(t, input)
			o := &Orchestrator{Dispatcher: tc.dispatcher, Presenter: &recordingPresenter{}}

			done := make(chan error, 1)
			go func() {
				_, err := o.Run(ctx, testConfig(path, tc.maxLines, tc.workers), io.Discard, io.Discard)
				done <- err
			}()

			select {
			case err := <-done:
				if err != nil {
					t.Errorf("Run returned error: %v", err)
				}
			case <-time.After(10 * time.Second):
				t.Fatal("DEADLOCK: Run did not complete within timeout")
			}
		})
	}
}

// TestOrchestrationNoDeadlock_ContextCancellation verifies that cancelling
// the context while a dispatch is blocked returns promptly with nothing on
// stdout.
func TestOrchestrationNoDeadlock_ContextCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := mocks.NewMockDispatcher(ctrl)
	d.EXPECT().Name().Return("blocking").AnyTimes()
	d.EXPECT().Dispatch(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *linestore.Store, _ partition.Plan) (dispatch.Outcome, error) {
			<-ctx.Done()
			return dispatch.Outcome{}, ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	path := writeInput(t, "a\nb\n")
	o := &Orchestrator{Dispatcher: d, Presenter: &recordingPresenter{}}

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := o.Run(ctx, testConfig(path, 2, 2), &out, io.Discard)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("stdout should be empty after cancellation, got %q", out.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("DEADLOCK after context cancellation")
	}
}
