package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/types"
)

type runnerFunc func(ctx context.Context, videoURL string, opts processor.Options) *types.ProcessingResult

func (f runnerFunc) Process(ctx context.Context, videoURL string, opts processor.Options) *types.ProcessingResult {
	return f(ctx, videoURL, opts)
}

func TestRunBatchKeepsOrderAndBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	r := runnerFunc(func(_ context.Context, u string, _ processor.Options) *types.ProcessingResult {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &types.ProcessingResult{URL: u, Success: true}
	})

	urls := []string{"a", "b", "c", "d", "e", "f", "g"}
	var done int
	results := RunBatch(context.Background(), r, urls, 3, processor.Options{}, func(int, *types.ProcessingResult) { done++ })

	if len(results) != len(urls) || done != len(urls) {
		t.Fatalf("results=%d done=%d", len(results), done)
	}
	for i, res := range results {
		if res.URL != urls[i] {
			t.Errorf("results[%d].URL = %s, want %s", i, res.URL, urls[i])
		}
	}
	if peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestRunBatchCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	r := runnerFunc(func(_ context.Context, u string, _ processor.Options) *types.ProcessingResult {
		atomic.AddInt32(&calls, 1)
		return &types.ProcessingResult{URL: u, Success: true}
	})

	results := RunBatch(ctx, r, []string{"a", "b"}, 2, processor.Options{}, nil)
	for i, res := range results {
		if res == nil {
			t.Fatalf("results[%d] is nil", i)
		}
	}
	// a worker may win the race for the first job, but every result is filled
	var failed int
	for _, res := range results {
		if !res.Success {
			failed++
			if res.ErrorCode != types.ErrUnknown || res.FinalState != string(processor.StageFailed) {
				t.Errorf("unexpected cancelled result %+v", res)
			}
		}
	}
	if int(calls)+failed != 2 {
		t.Errorf("calls=%d failed=%d", calls, failed)
	}
}

func TestRunBatchEmpty(t *testing.T) {
	results := RunBatch(context.Background(), nil, nil, 4, processor.Options{}, nil)
	if len(results) != 0 {
		t.Fatalf("results = %v", results)
	}
}
