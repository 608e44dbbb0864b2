// Package workerpool runs bounded concurrent work over a fixed list of items.
package workerpool

import (
	"context"
	"sync"
)

// Process runs process for every item on workerCount goroutines. The first error cancels the remaining
// work, calls onCancel when set and is returned.
func Process[T any](
	ctx context.Context,
	workerCount int,
	items []T,
	process func(context.Context, T) error,
	onCancel func(),
) error {
	workerCount = max(workerCount, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan T, workerCount)
	errs := make(chan error, workerCount)
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case item, ok := <-tasks:
					if !ok {
						return
					}
					if err := process(ctx, item); err != nil {
						select {
						case errs <- err:
						default:
						}
						if onCancel != nil {
							onCancel()
						}
						cancel()
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case tasks <- item:
			}
		}
	}()

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Map applies fn to every item on workerCount goroutines and returns the results in item order.
func Map[T, R any](ctx context.Context, workerCount int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	type job struct {
		index int
		item  T
	}
	jobs := make([]job, len(items))
	for i, item := range items {
		jobs[i] = job{index: i, item: item}
	}

	results := make([]R, len(items))
	err := Process(ctx, workerCount, jobs, func(ctx context.Context, j job) error {
		r, err := fn(ctx, j.item)
		if err != nil {
			return err
		}
		results[j.index] = r
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return results, nil
}
