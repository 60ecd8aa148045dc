package storage

import (
	"context"
	"sync"
	"time"
)

const (
	defaultBatchSize = 100
	defaultBatchWait = 100 * time.Millisecond
)

// BatchWriter collects Puts and writes them in one transaction per batch. A
// batch is written when it reaches its size limit or when maxWait has passed
// since its first entry. Later writes to the same key within a batch replace
// earlier ones.
type BatchWriter struct {
	store   *Store
	batch   []entry
	index   map[string]int
	maxSize int
	maxWait time.Duration
	onError func(error)

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewBatchWriter returns a writer on s. Non-positive arguments select the
// defaults. Errors of timer-triggered flushes are logged.
func (s *Store) NewBatchWriter(maxSize int, maxWait time.Duration) *BatchWriter {
	if maxSize <= 0 {
		maxSize = defaultBatchSize
	}
	if maxWait <= 0 {
		maxWait = defaultBatchWait
	}
	bw := &BatchWriter{
		store:   s,
		index:   make(map[string]int),
		maxSize: maxSize,
		maxWait: maxWait,
	}
	bw.onError = func(err error) {
		s.log.Error().Err(err).Msg("batched write failed")
	}
	return bw
}

// Add queues v under key. Encoding errors are returned immediately.
func (bw *BatchWriter) Add(key string, v any) error {
	e, err := bw.store.encode(key, v)
	if err != nil {
		return err
	}

	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrStoreClosed
	}
	if i, ok := bw.index[key]; ok {
		bw.batch[i] = e
	} else {
		bw.index[key] = len(bw.batch)
		bw.batch = append(bw.batch, e)
	}
	var batch []entry
	if len(bw.batch) >= bw.maxSize {
		batch = bw.takeLocked()
	} else if len(bw.batch) == 1 {
		bw.timer = time.AfterFunc(bw.maxWait, bw.flushFromTimer)
	}
	bw.mu.Unlock()

	return bw.write(batch)
}

// Flush writes the pending batch now.
func (bw *BatchWriter) Flush() error {
	bw.mu.Lock()
	batch := bw.takeLocked()
	bw.mu.Unlock()
	return bw.write(batch)
}

// Close flushes what is pending. Add fails afterwards.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return nil
	}
	bw.closed = true
	batch := bw.takeLocked()
	bw.mu.Unlock()
	return bw.write(batch)
}

// BatchSize returns the number of pending entries.
func (bw *BatchWriter) BatchSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.batch)
}

func (bw *BatchWriter) takeLocked() []entry {
	if bw.timer != nil {
		bw.timer.Stop()
		bw.timer = nil
	}
	batch := bw.batch
	bw.batch = nil
	bw.index = make(map[string]int)
	return batch
}

func (bw *BatchWriter) flushFromTimer() {
	if err := bw.Flush(); err != nil {
		bw.onError(err)
	}
}

func (bw *BatchWriter) write(batch []entry) error {
	if len(batch) == 0 {
		return nil
	}
	return bw.store.write(context.Background(), "batch", batch)
}
