package orchestrator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/faughnn/factreel/internal/core"
)

// WorkItem is one unit of concurrent work submitted to runWorkerPool: a
// section_id to synthesize (stage 5) or clip (stage 6), carrying whatever
// the task function needs to process it.
type WorkItem struct {
	Index int
	Value interface{}
}

// WorkResult is what a worker produces for one WorkItem.
type WorkResult struct {
	Index int
	Value interface{}
}

// workTask processes one WorkItem under ctx, returning the value to carry
// in the WorkResult.
type workTask func(ctx context.Context, item WorkItem) (interface{}, error)

// runWorkerPool runs task over items with maxWorkers concurrent goroutines,
// generalized from the teacher's DefaultWorkerPool.ProcessItems: a producer
// feeds a work channel, N workers drain it, the first error cancels the
// pool, and a single collector goroutine re-assembles results in the
// original item order via a "waiting room" map — required here because §5
// demands stage 7 consume sections in verified-script order regardless of
// which stage-5/6 work item finished first.
func runWorkerPool(ctx context.Context, logger *zerolog.Logger, maxWorkers int, items []WorkItem, task workTask, onProgress func(done, total int)) ([]WorkResult, error) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var (
		workChan   = make(chan WorkItem)
		resultChan = make(chan WorkResult, len(items))
		errChan    = make(chan error, maxWorkers)
		wg         sync.WaitGroup
		results    = make([]WorkResult, 0, len(items))
	)

	poolCtx, poolCancel := context.WithCancel(ctx)
	defer poolCancel()

	for i := 1; i <= maxWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-poolCtx.Done():
					return
				case item, ok := <-workChan:
					if !ok {
						return
					}
					value, err := task(poolCtx, item)
					if err != nil {
						select {
						case errChan <- err:
						case <-poolCtx.Done():
						}
						return
					}
					select {
					case <-poolCtx.Done():
						return
					case resultChan <- WorkResult{Index: item.Index, Value: value}:
					}
				}
			}
		}(i)
	}

	go func() {
		defer close(workChan)
		for _, item := range items {
			select {
			case <-poolCtx.Done():
				return
			case workChan <- item:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
		close(errChan)
	}()

	var finalErr error
	var errOnce sync.Once
	go func() {
		if err, ok := <-errChan; ok {
			errOnce.Do(func() {
				finalErr = err
				poolCancel()
			})
		}
	}()

	waitingRoom := make(map[int]WorkResult)
	nextIndex := 0
	done := 0
	total := len(items)

collect:
	for {
		if r, exists := waitingRoom[nextIndex]; exists {
			results = append(results, r)
			delete(waitingRoom, nextIndex)
			nextIndex++
			done++
			if onProgress != nil {
				onProgress(done, total)
			}
			continue
		}
		select {
		case <-poolCtx.Done():
			break collect
		case r, ok := <-resultChan:
			if !ok {
				break collect
			}
			if r.Index == nextIndex {
				results = append(results, r)
				nextIndex++
				done++
				if onProgress != nil {
					onProgress(done, total)
				}
			} else {
				waitingRoom[r.Index] = r
			}
		}
	}

	// Drain anything left in the waiting room in order (resultChan closed
	// before the collector observed every item, e.g. cancellation raced the
	// final sends).
	for {
		r, exists := waitingRoom[nextIndex]
		if !exists {
			break
		}
		results = append(results, r)
		delete(waitingRoom, nextIndex)
		nextIndex++
		done++
		if onProgress != nil {
			onProgress(done, total)
		}
	}

	if ctx.Err() != nil {
		return nil, &core.Cancelled{}
	}
	if finalErr != nil {
		if logger != nil {
			logger.Error().Err(finalErr).Msg("worker pool task failed; cancelling remaining work")
		}
		return nil, finalErr
	}
	return results, nil
}
