package rating

import (
	"context"
	"sync"
)

// Outcome pairs a rating result with its error.
type Outcome struct {
	Input  Input
	Result *Result
	Err    error
}

type indexedInput struct {
	index int
	input Input
}

// RateAll rates inputs with a bounded pool of workers. Outcomes are
// returned in input order. Inputs not started before ctx is cancelled get
// ctx's error.
func (e *Engine) RateAll(ctx context.Context, inputs []Input, workers int) []Outcome {
	out := make([]Outcome, len(inputs))
	if len(inputs) == 0 {
		return out
	}
	if workers <= 0 {
		workers = e.cfg.Workers
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	items := make(chan indexedInput)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				res, err := e.Rate(ctx, item.input)
				out[item.index] = Outcome{Input: item.input, Result: res, Err: err}
			}
		}()
	}

	next := 0
feed:
	for ; next < len(inputs); next++ {
		select {
		case <-ctx.Done():
			break feed
		case items <- indexedInput{index: next, input: inputs[next]}:
		}
	}
	close(items)
	wg.Wait()

	for i := next; i < len(inputs); i++ {
		out[i] = Outcome{Input: inputs[i], Err: ctx.Err()}
	}
	return out
}
