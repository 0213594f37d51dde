// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queue drives submitted files through validation and conversion.
// The Queue owns every QueueItem and the files each item produces; callers
// only ever see copies.
//
// Items move queued -> processing -> completed|failed. At most
// MaxConcurrent items are processing at any time; the rest wait for a
// worker slot. Completion order is not related to submission order. The
// one exception to the path through processing is shutdown: an item still
// waiting for a slot when the shutdown deadline passes fails straight from
// queued and keeps a zero StartedAt.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/heicconv/internal/apperr"
	"github.com/pdiddy/heicconv/internal/convert"
	"github.com/pdiddy/heicconv/pkg/types"
)

// Advisory progress checkpoints.
const (
	progressStarted   = 10
	progressValidated = 30
	progressReady     = 60
	progressDone      = 100
)

// DefaultMaxConcurrent is used when Options.MaxConcurrent is not positive.
const DefaultMaxConcurrent = 5

var (
	ErrNotFound       = errors.New("item not found")
	ErrBusy           = errors.New("item is being processed")
	ErrClosed         = errors.New("queue is shut down")
	ErrAlreadyStarted = errors.New("item already started")
	ErrNotCompleted   = errors.New("item has no converted output")
	ErrNotStarted     = errors.New("item was never started")
)

// Validator checks an input before conversion.
type Validator interface {
	Validate(ref types.FileRef) error
}

// TempStore materializes in-memory inputs and deletes owned files.
type TempStore interface {
	Materialize(content []byte, suggestedName string) (string, error)
	Cleanup(path string) error
}

// Recorder receives every item that reaches a terminal state.
type Recorder interface {
	Record(ctx context.Context, item types.QueueItem) error
}

// Options configures a Queue.
type Options struct {
	// MaxConcurrent bounds the number of items processing at once.
	MaxConcurrent int

	// Recorder, when set, is told about each completed or failed item.
	Recorder Recorder

	// OnUpdate, when set, is called with a copy of an item after each
	// state or progress change. It runs on the worker goroutine.
	OnUpdate func(types.QueueItem)

	Log log.FieldLogger
}

type entry struct {
	item types.QueueItem
	ref  types.FileRef

	scheduled bool
	removing  bool
	saving    int

	// tempPath is a materialized input owned by this item.
	tempPath string

	done chan struct{}
}

// busy reports whether the item's files may be in use.
func (e *entry) busy() bool {
	return (e.scheduled && !e.item.Status.Terminal()) || e.saving > 0
}

// owned returns the files this item is responsible for releasing.
func (e *entry) owned() []string {
	var paths []string
	if e.item.OutputPath != "" {
		paths = append(paths, e.item.OutputPath)
	}
	if e.tempPath != "" {
		paths = append(paths, e.tempPath)
	}
	return paths
}

// Queue is safe for concurrent use.
type Queue struct {
	validator Validator
	converter convert.Converter
	temps     TempStore
	recorder  Recorder
	onUpdate  func(types.QueueItem)
	log       log.FieldLogger

	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	saves  sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	items  map[string]*entry
	order  []string
	closed bool
}

// New creates a Queue. The queue starts no work until Start is called.
func New(v Validator, c convert.Converter, temps TempStore, opts Options) *Queue {
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	logger := opts.Log
	if logger == nil {
		logger = log.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		validator: v,
		converter: c,
		temps:     temps,
		recorder:  opts.Recorder,
		onUpdate:  opts.OnUpdate,
		log:       logger,
		sem:       semaphore.NewWeighted(int64(limit)),
		ctx:       ctx,
		cancel:    cancel,
		items:     make(map[string]*entry),
	}
}

// Submit adds ref to the queue with status queued and returns a copy of
// the new item.
func (q *Queue) Submit(ref types.FileRef) (types.QueueItem, error) {
	e := &entry{
		item: types.QueueItem{
			ID:          uuid.NewString(),
			Name:        ref.DisplayName(),
			SizeBytes:   ref.Size(),
			Status:      types.StatusQueued,
			SubmittedAt: time.Now(),
		},
		ref:  ref,
		done: make(chan struct{}),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return types.QueueItem{}, ErrClosed
	}
	q.items[e.item.ID] = e
	q.order = append(q.order, e.item.ID)

	q.log.WithFields(log.Fields{"item": e.item.ID, "name": e.item.Name}).Debug("queued")
	return e.item, nil
}

// Start schedules a queued item. It returns immediately; the item becomes
// processing once a worker slot is free.
func (q *Queue) Start(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	e, ok := q.items[id]
	if !ok || e.removing {
		return ErrNotFound
	}
	if e.scheduled || e.item.Status != types.StatusQueued {
		return ErrAlreadyStarted
	}
	e.scheduled = true
	q.wg.Add(1)
	go q.run(e)
	return nil
}

// StartAll schedules every item that has not been started yet.
func (q *Queue) StartAll() {
	q.mu.RLock()
	ids := make([]string, 0, len(q.order))
	for _, id := range q.order {
		if e := q.items[id]; !e.scheduled {
			ids = append(ids, id)
		}
	}
	q.mu.RUnlock()

	for _, id := range ids {
		// Items removed or started in the meantime are skipped.
		_ = q.Start(id)
	}
}

func (q *Queue) run(e *entry) {
	defer q.wg.Done()

	if err := q.sem.Acquire(q.ctx, 1); err != nil {
		q.fail(e, apperr.ConversionFailed("queue shut down before conversion started", err))
		return
	}
	defer q.sem.Release(1)

	q.update(e, func(it *types.QueueItem) {
		it.Status = types.StatusProcessing
		it.Progress = progressStarted
		it.StartedAt = time.Now()
	})

	if err := q.validator.Validate(e.ref); err != nil {
		q.fail(e, err)
		return
	}
	q.update(e, func(it *types.QueueItem) { it.Progress = progressValidated })

	input, err := q.inputPath(e)
	if err != nil {
		q.fail(e, err)
		return
	}
	q.update(e, func(it *types.QueueItem) { it.Progress = progressReady })

	out, err := q.converter.Convert(q.ctx, input)
	q.releaseTemp(e)
	if err != nil {
		q.fail(e, err)
		return
	}
	q.finish(e, func(it *types.QueueItem) {
		it.Status = types.StatusCompleted
		it.Progress = progressDone
		it.OutputPath = out
	})
}

// inputPath returns a path the converter can read, materializing
// in-memory content when needed.
func (q *Queue) inputPath(e *entry) (string, error) {
	switch r := e.ref.(type) {
	case types.PathRef:
		return r.Path, nil
	case types.BytesRef:
		path, err := q.temps.Materialize(r.Content, r.Name)
		if err != nil {
			return "", err
		}
		q.mu.Lock()
		e.tempPath = path
		q.mu.Unlock()
		return path, nil
	}
	return "", apperr.InvalidPath("", "unsupported file reference")
}

// releaseTemp deletes the item's materialized input, if any, exactly once.
func (q *Queue) releaseTemp(e *entry) {
	q.mu.Lock()
	path := e.tempPath
	e.tempPath = ""
	q.mu.Unlock()
	q.release(path)
}

func (q *Queue) release(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := q.temps.Cleanup(p); err != nil {
			q.log.WithError(err).WithField("path", p).Warn("cleanup failed")
		}
	}
}

func (q *Queue) fail(e *entry, err error) {
	q.finish(e, func(it *types.QueueItem) {
		it.Status = types.StatusFailed
		it.Progress = 0
		it.OutputPath = ""
		it.ErrorKind = apperr.KindOf(err)
		it.ErrorMessage = apperr.UserMessage(err)
	})
}

// finish applies a terminal transition, wakes waiters, and records the item.
func (q *Queue) finish(e *entry, fn func(*types.QueueItem)) {
	snapshot := q.update(e, func(it *types.QueueItem) {
		fn(it)
		it.FinishedAt = time.Now()
	})
	close(e.done)

	fields := log.Fields{"item": snapshot.ID, "name": snapshot.Name, "status": snapshot.Status}
	if snapshot.Status == types.StatusFailed {
		fields["error_kind"] = snapshot.ErrorKind
		q.log.WithFields(fields).Info(snapshot.ErrorMessage)
	} else {
		q.log.WithFields(fields).Debug("converted")
	}

	if q.recorder != nil {
		if err := q.recorder.Record(context.Background(), snapshot); err != nil {
			q.log.WithError(err).WithField("item", snapshot.ID).Warn("recording history failed")
		}
	}
}

func (q *Queue) update(e *entry, fn func(*types.QueueItem)) types.QueueItem {
	q.mu.Lock()
	fn(&e.item)
	snapshot := e.item
	q.mu.Unlock()

	if q.onUpdate != nil {
		q.onUpdate(snapshot)
	}
	return snapshot
}

// Get returns a copy of the item with the given id.
func (q *Queue) Get(id string) (types.QueueItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	e, ok := q.items[id]
	if !ok {
		return types.QueueItem{}, false
	}
	return e.item, true
}

// Snapshot returns copies of all items in submission order.
func (q *Queue) Snapshot() []types.QueueItem {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]types.QueueItem, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.items[id].item)
	}
	return out
}

// Wait blocks until the item reaches a terminal state or ctx is done. An
// item that was never started returns ErrNotStarted at once instead of
// blocking.
func (q *Queue) Wait(ctx context.Context, id string) (types.QueueItem, error) {
	q.mu.RLock()
	e, ok := q.items[id]
	scheduled := ok && e.scheduled
	q.mu.RUnlock()
	if !ok {
		return types.QueueItem{}, ErrNotFound
	}
	if !scheduled {
		return types.QueueItem{}, ErrNotStarted
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return types.QueueItem{}, ctx.Err()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	return e.item, nil
}

// WaitAll blocks until every started item has finished or ctx is done.
func (q *Queue) WaitAll(ctx context.Context) error {
	q.mu.RLock()
	var pending []chan struct{}
	for _, e := range q.items {
		if e.scheduled {
			pending = append(pending, e.done)
		}
	}
	q.mu.RUnlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Remove releases the item's output and scratch files and deletes it from
// the queue. Items that are still processing cannot be removed. Cleanup
// failures are logged, not returned.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	e, ok := q.items[id]
	if !ok || e.removing {
		q.mu.Unlock()
		return ErrNotFound
	}
	if e.busy() {
		q.mu.Unlock()
		return ErrBusy
	}
	e.removing = true
	paths := e.owned()
	e.tempPath = ""
	q.mu.Unlock()

	q.release(paths...)

	q.mu.Lock()
	delete(q.items, id)
	for i, oid := range q.order {
		if oid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	q.mu.Unlock()

	q.log.WithField("item", id).Debug("removed")
	return nil
}

// Shutdown stops accepting work and saves, waits for started items and
// saves in progress to finish, and releases every file the queue still
// owns. If ctx ends first, running tools are stopped and items still
// waiting for a slot fail without entering processing. Saves in progress
// are always allowed to complete. Cleanup errors are logged and otherwise
// ignored.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		q.saves.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		q.log.Warn("shutdown deadline reached, stopping conversions")
		q.cancel()
		<-finished
	}
	q.cancel()

	q.mu.Lock()
	var paths []string
	for _, e := range q.items {
		paths = append(paths, e.owned()...)
		e.tempPath = ""
	}
	q.items = make(map[string]*entry)
	q.order = nil
	q.mu.Unlock()

	q.release(paths...)
}
