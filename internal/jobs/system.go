// Package jobs runs background work on a bounded worker pool with per-job
// dedup, retry with exponential backoff, and synchronous completion waits.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrStopped        = errors.New("job system stopped")
	ErrUnknownJobName = errors.New("unknown job name")
)

type HandlerFunc func(ctx context.Context, payload any) error

type Options struct {
	// JobID deduplicates: enqueueing an id that is still pending replaces
	// the pending payload instead of queueing a second run.
	JobID    string
	Attempts int
	Backoff  time.Duration
	// Priority orders the queue; lower runs first.
	Priority int
}

// Handle lets a caller await a job's terminal result, the way an HTTP
// handler waits for a participant's pick to land before responding.
type Handle struct {
	jobID string
	done  chan struct{}
	err   error
}

func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

type job struct {
	name    string
	payload any
	opts    Options
	handle  *Handle
	attempt int
	seq     int64
}

// System owns the queue and worker pool. It is constructed explicitly and
// started/stopped by the process entry point; nothing here is ambient
// module state.
type System struct {
	logger      *zap.Logger
	concurrency int

	mu       sync.Mutex
	cond     *sync.Cond
	handlers map[string]HandlerFunc
	queue    []*job
	pending  map[string]*job
	inflight map[string]int
	seq      int64
	stopped  bool
	started  bool

	wg     sync.WaitGroup
	timers sync.WaitGroup
}

func NewSystem(logger *zap.Logger, concurrency int) *System {
	if concurrency <= 0 {
		concurrency = 5
	}
	s := &System{
		logger:      logger,
		concurrency: concurrency,
		handlers:    make(map[string]HandlerFunc),
		pending:     make(map[string]*job),
		inflight:    make(map[string]int),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Register binds a handler to a job name. Must happen before Start.
func (s *System) Register(name string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
}

func (s *System) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.concurrency; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// Stop drains in-flight jobs and fails everything still queued with
// ErrStopped.
func (s *System) Stop() {
	s.mu.Lock()
	s.stopped = true
	queued := s.queue
	s.queue = nil
	for _, j := range queued {
		delete(s.pending, j.opts.JobID)
		j.handle.err = ErrStopped
		close(j.handle.done)
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	s.timers.Wait()
	s.wg.Wait()
}

// Enqueue schedules a job. A JobID already pending gets its payload replaced
// and the original handle returned, so the latest delta wins without running
// twice.
func (s *System) Enqueue(name string, payload any, opts Options) (*Handle, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStopped
	}
	if _, ok := s.handlers[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobName, name)
	}

	if opts.JobID != "" {
		if existing, ok := s.pending[opts.JobID]; ok {
			existing.payload = payload
			return existing.handle, nil
		}
	}

	s.seq++
	j := &job{
		name:    name,
		payload: payload,
		opts:    opts,
		handle:  &Handle{jobID: opts.JobID, done: make(chan struct{})},
		seq:     s.seq,
	}
	if opts.JobID != "" {
		s.pending[opts.JobID] = j
	}
	s.push(j)
	return j.handle, nil
}

// push inserts into the queue keeping priority-then-FIFO order. Caller holds
// the mutex.
func (s *System) push(j *job) {
	s.queue = append(s.queue, j)
	sort.SliceStable(s.queue, func(i, k int) bool {
		if s.queue[i].opts.Priority != s.queue[k].opts.Priority {
			return s.queue[i].opts.Priority < s.queue[k].opts.Priority
		}
		return s.queue[i].seq < s.queue[k].seq
	})
	s.cond.Signal()
}

func (s *System) worker() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped && len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue = s.queue[1:]
		// Once running, the job no longer dedups: a fresh enqueue for the
		// same id queues a new run against the post-merge state.
		if j.opts.JobID != "" && s.pending[j.opts.JobID] == j {
			delete(s.pending, j.opts.JobID)
		}
		handler := s.handlers[j.name]
		s.mu.Unlock()

		s.run(j, handler)
	}
}

func (s *System) run(j *job, handler HandlerFunc) {
	j.attempt++
	err := handler(context.Background(), j.payload)
	if err == nil {
		close(j.handle.done)
		return
	}

	if j.attempt >= j.opts.Attempts {
		s.logger.Error("job failed after retries",
			zap.String("job", j.name),
			zap.String("jobId", j.opts.JobID),
			zap.Int("attempts", j.attempt),
			zap.Error(err))
		j.handle.err = err
		close(j.handle.done)
		return
	}

	delay := j.opts.Backoff
	for i := 1; i < j.attempt; i++ {
		delay *= 2
	}
	s.logger.Warn("job attempt failed, retrying",
		zap.String("job", j.name),
		zap.String("jobId", j.opts.JobID),
		zap.Int("attempt", j.attempt),
		zap.Duration("delay", delay),
		zap.Error(err))

	s.timers.Add(1)
	time.AfterFunc(delay, func() {
		defer s.timers.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped {
			j.handle.err = ErrStopped
			close(j.handle.done)
			return
		}
		s.push(j)
	})
}
