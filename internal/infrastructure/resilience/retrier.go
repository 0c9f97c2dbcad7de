package resilience

import "context"

// Retrier adapts the executor to the batch-retry port used by the index
// population path. Every error is treated as retryable; the batch either
// lands within the attempt budget or the whole article indexing fails.
type Retrier struct {
	exec *Executor
}

func NewRetrier(exec *Executor) *Retrier {
	return &Retrier{exec: exec}
}

func (r *Retrier) Run(ctx context.Context, operation string, fn func(context.Context) error) error {
	return r.exec.Execute(ctx, operation, fn, retryAllClassifier)
}

func retryAllClassifier(error) ErrorClassification {
	return ErrorClassification{
		Retryable:     true,
		RecordFailure: true,
	}
}
