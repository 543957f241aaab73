package scheduler

import (
	"container/heap"
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
	"github.com/vtftk/app/internal/metrics"
)

// EventEmitter delivers timer-fired occurrences to the dispatcher queue.
type EventEmitter interface {
	Emit(ctx context.Context, occ domain.Occurrence) error
}

// Task is one timer-triggered automation in a schedule replace.
type Task struct {
	EventID         uuid.UUID
	IntervalSeconds int64
}

// scheduledTask is a live heap entry. nextFire is always aligned to a
// multiple of the interval since the Unix epoch, so fires line up to
// wall-clock boundaries instead of drifting from "now + interval".
type scheduledTask struct {
	eventID  uuid.UUID
	interval int64
	nextFire time.Time
	seq      uint64
}

// Scheduler owns the timer task queue. The heap is only touched by the
// Run loop; replaces arrive over a channel and rebuild it wholesale.
type Scheduler struct {
	emitter EventEmitter
	log     *zap.SugaredLogger
	sink    metrics.Sink
	updates chan []Task
	clock   func() time.Time

	tasks taskHeap
	seq   uint64
}

func New(emitter EventEmitter, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		emitter: emitter,
		log:     log,
		sink:    metrics.NewNoopSink(),
		updates: make(chan []Task, 5),
		clock:   time.Now,
	}
}

// WithMetrics reports timer fires and schedule replaces to the sink.
func (s *Scheduler) WithMetrics(sink metrics.Sink) *Scheduler {
	s.sink = sink
	return s
}

// UpdateSchedule replaces the whole schedule with the given task list.
// Delivery is asynchronous and best-effort: an undeliverable update is
// logged, never surfaced to the caller.
func (s *Scheduler) UpdateSchedule(ctx context.Context, tasks []Task) {
	select {
	case s.updates <- tasks:
	case <-ctx.Done():
		s.log.Warnw("scheduler: dropping schedule update", "reason", ctx.Err())
	}
}

// Run drives the wait/fire loop until the context is cancelled. It
// sleeps until the earliest due task, fires it, and re-arms it at the
// next aligned instant. A schedule replace invalidates any in-flight
// sleep and restarts with the fresh earliest instant.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infow("scheduler: started")

	for {
		var wake <-chan time.Time
		var timer *time.Timer

		if s.tasks.Len() > 0 {
			next := s.tasks.peek()
			d := next.nextFire.Sub(s.clock())
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
			wake = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			s.log.Infow("scheduler: stopped")
			return ctx.Err()

		case tasks, ok := <-s.updates:
			stopTimer(timer)
			if !ok {
				// Keep operating on the last known schedule.
				s.log.Errorw("scheduler: update channel closed")
				s.updates = nil
				continue
			}
			s.rebuild(tasks)

		case <-wake:
			task := heap.Pop(&s.tasks).(*scheduledTask)
			s.fire(ctx, task.eventID)
			s.push(task.eventID, task.interval)
		}
	}
}

// rebuild drops all heap contents and rebuilds from the new list,
// keeping at most one entry per automation.
func (s *Scheduler) rebuild(tasks []Task) {
	s.tasks = s.tasks[:0]
	seen := make(map[uuid.UUID]struct{}, len(tasks))
	for _, task := range tasks {
		if task.IntervalSeconds <= 0 {
			continue
		}
		if _, dup := seen[task.EventID]; dup {
			continue
		}
		seen[task.EventID] = struct{}{}
		s.push(task.EventID, task.IntervalSeconds)
	}
	s.sink.ScheduleReplaced(s.tasks.Len())
	s.log.Debugw("scheduler: schedule replaced", "tasks", s.tasks.Len())
}

func (s *Scheduler) push(eventID uuid.UUID, interval int64) {
	s.seq++
	heap.Push(&s.tasks, &scheduledTask{
		eventID:  eventID,
		interval: interval,
		nextFire: nextAlignedInstant(s.clock(), interval),
		seq:      s.seq,
	})
}

func (s *Scheduler) fire(ctx context.Context, eventID uuid.UUID) {
	occ := domain.Occurrence{
		Kind:    domain.OccurrenceTimerFired,
		EventID: eventID,
	}
	if err := s.emitter.Emit(ctx, occ); err != nil {
		s.log.Errorw("scheduler: failed to emit timer fire",
			"event_id", eventID, "error", err)
		return
	}
	s.sink.TimerFired()
}

// nextAlignedInstant returns the smallest instant strictly after now that
// is a whole multiple of interval seconds since the Unix epoch.
func nextAlignedInstant(now time.Time, interval int64) time.Time {
	secs := now.Unix()
	next := (secs/interval + 1) * interval
	return time.Unix(next, 0)
}

func stopTimer(t *time.Timer) {
	if t == nil {
		return
	}
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// taskHeap is a min-heap on nextFire with FIFO-stable ties.
type taskHeap []*scheduledTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].nextFire.Equal(h[j].nextFire) {
		return h[i].seq < h[j].seq
	}
	return h[i].nextFire.Before(h[j].nextFire)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*scheduledTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return task
}

func (h taskHeap) peek() *scheduledTask { return h[0] }
