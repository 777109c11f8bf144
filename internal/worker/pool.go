// Package worker provides a bounded pool for processing independent
// inputs concurrently while preserving input order in the results.
package worker

import (
	"context"
	"sync"
)

// Result pairs an input with its outcome.
type Result[T, R any] struct {
	Input T
	Value R
	Err   error
}

// ProcessFunc handles one input.
type ProcessFunc[T, R any] func(ctx context.Context, input T) (R, error)

// Pool fans inputs out to a fixed number of workers.
type Pool[T, R any] struct {
	workers int
	process ProcessFunc[T, R]
}

// NewPool creates a pool with the given worker count. Counts below one
// are clamped to one.
func NewPool[T, R any](workers int, process ProcessFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, process: process}
}

// Execute runs every input through the pool and returns the results in
// input order. Cancelling ctx stops feeding; inputs never handed to a
// worker carry the context error.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Result[T, R] {
	results := make([]Result[T, R], len(inputs))
	for i := range inputs {
		results[i].Input = inputs[i]
	}

	type job struct {
		index int
		input T
	}
	jobs := make(chan job)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				value, err := p.process(ctx, j.input)
				results[j.index].Value = value
				results[j.index].Err = err
			}
		}()
	}

feed:
	for i, input := range inputs {
		select {
		case jobs <- job{index: i, input: input}:
		case <-ctx.Done():
			for j := i; j < len(inputs); j++ {
				results[j].Err = ctx.Err()
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
