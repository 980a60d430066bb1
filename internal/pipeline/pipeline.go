package pipeline

import (
	"context"
	"errors"
	"sync"

	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/types"
)

// Runner processes one URL. *processor.Processor satisfies it.
type Runner interface {
	Process(ctx context.Context, videoURL string, opts processor.Options) *types.ProcessingResult
}

// Done is called once per finished URL with its input index. Calls may come
// from several goroutines but never concurrently.
type Done func(i int, res *types.ProcessingResult)

// RunBatch processes urls with at most workers runs in flight and returns the
// results in input order. URLs not started before ctx is cancelled get a
// failed result carrying ctx's error.
func RunBatch(ctx context.Context, r Runner, urls []string, workers int, opts processor.Options, onDone Done) []*types.ProcessingResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	results := make([]*types.ProcessingResult, len(urls))
	jobs := make(chan int)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	finish := func(i int, res *types.ProcessingResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = res
		if onDone != nil {
			onDone(i, res)
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				finish(i, r.Process(ctx, urls[i], opts))
			}
		}()
	}

	next := 0
feed:
	for ; next < len(urls); next++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- next:
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(urls); i++ {
		finish(i, cancelled(ctx, urls[i]))
	}
	return results
}

func cancelled(ctx context.Context, videoURL string) *types.ProcessingResult {
	err := ctx.Err()
	code := types.ErrUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		code = types.ErrTimeout
	}
	return &types.ProcessingResult{
		URL:        videoURL,
		ErrorCode:  code,
		Error:      "not started: " + err.Error(),
		FinalState: string(processor.StageFailed),
		Stages:     map[string]types.StageOutcome{},
	}
}
