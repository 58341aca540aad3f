package assay

import "context"

// BlockOn runs fn and blocks the calling goroutine until it finishes or the
// context is done. It bridges asynchronous test bodies (work started on
// other goroutines) into the strictly synchronous worker flow.
func BlockOn(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
