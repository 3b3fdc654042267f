// Package parallel runs index ranges over a fixed set of goroutines. The
// propagation engine uses it to split each tick over the node slice.
package parallel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-botnetsim/pkg/logging"
	"github.com/dd0wney/cluso-botnetsim/pkg/validation"
)

// ErrTooManyWorkers is returned when the worker count exceeds validation.MaxWorkers.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// shard is one half-open index range of a ForRange call.
type shard struct {
	lo, hi int
	fn     func(lo, hi int)
	batch  *batch
}

// batch collects the completion and first panic of one ForRange call.
type batch struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	panicked any
}

func (b *batch) run(s shard) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.mu.Lock()
			if b.panicked == nil {
				b.panicked = r
			}
			b.mu.Unlock()
		}
	}()
	s.fn(s.lo, s.hi)
}

// WorkerPool owns a fixed number of goroutines that execute shards.
type WorkerPool struct {
	workers int
	shards  chan shard
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards shards against close during send
	closed  bool
	logger  logging.Logger
}

// NewWorkerPool starts workers goroutines. Non-positive counts become 1.
func NewWorkerPool(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > validation.MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, validation.MaxWorkers)
	}

	wp := &WorkerPool{
		workers: workers,
		shards:  make(chan shard, workers),
		logger:  logging.OrNop(logger).With(logging.Component("parallel")),
	}
	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.loop()
	}
	wp.logger.Debug("worker pool started", logging.Int("workers", workers))
	return wp, nil
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

func (wp *WorkerPool) loop() {
	defer wp.wg.Done()
	for s := range wp.shards {
		s.batch.run(s)
	}
}

func (wp *WorkerPool) enqueue(s shard) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	wp.shards <- s
	return true
}

// Chunks splits [0, n) into at most parts contiguous half-open ranges of
// near-equal size.
func Chunks(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	size := int((int64(n) + int64(parts) - 1) / int64(parts))
	out := make([][2]int, 0, parts)
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}

// ForRange runs fn over [0, n) split into one chunk per worker and blocks
// until every chunk has returned. After Close the chunks run inline on the
// caller's goroutine. A panic inside fn is re-raised on the caller once all
// chunks finish.
func (wp *WorkerPool) ForRange(n int, fn func(lo, hi int)) {
	b := &batch{}
	for _, c := range Chunks(n, wp.workers) {
		s := shard{lo: c[0], hi: c[1], fn: fn, batch: b}
		b.wg.Add(1)
		if !wp.enqueue(s) {
			b.run(s)
		}
	}
	b.wg.Wait()

	if b.panicked != nil {
		wp.logger.Error("range task panicked", logging.Any("panic", fmt.Sprint(b.panicked)))
		panic(fmt.Sprintf("parallel: task panicked: %v", b.panicked))
	}
}

// Close stops the workers after queued shards drain. It is safe to call
// more than once.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.shards)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
