package runtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/simforge/sim-runtime/errors"
	"github.com/simforge/sim-runtime/sink"
)

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	// Dt is the timestep used by Tick. Non-positive means DefaultTimestep.
	Dt float64

	// Workers is the number of goroutines stepping instances per tick.
	// Values below 2 mean sequential stepping.
	Workers int
}

// Scheduler drives a set of registered instances. Each tick advances every
// registered instance by one timestep in registration order; that order is
// stable and repeatable for a fixed set. A failing instance never aborts
// the tick: its error goes to the sink and the tick moves on.
//
// With Workers > 1 instances are stepped concurrently. That is safe because
// instances share no native state; sink reporting still happens in
// registration order.
type Scheduler struct {
	stepper *Stepper
	sink    *sink.Log
	log     *zap.Logger
	dt      float64
	workers int

	mu    sync.Mutex
	order []*Instance
	index map[string]int // instance id -> position in order
}

// NewScheduler creates a scheduler reporting failures to the given sink.
func NewScheduler(stepper *Stepper, errSink *sink.Log, log *zap.Logger, opts SchedulerOptions) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	dt := opts.Dt
	if dt <= 0 {
		dt = DefaultTimestep
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		stepper: stepper,
		sink:    errSink,
		log:     log,
		dt:      dt,
		workers: workers,
		index:   make(map[string]int),
	}
}

// Register adds an instance to the tick order. Registering an instance that
// is already registered is a no-op.
func (s *Scheduler) Register(inst *Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[inst.id]; ok {
		return
	}
	s.index[inst.id] = len(s.order)
	s.order = append(s.order, inst)
}

// Deregister removes an instance. Takes effect immediately: an instance
// deregistered mid-tick is skipped for the remainder of that tick.
func (s *Scheduler) Deregister(inst *Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.index[inst.id]
	if !ok {
		return
	}
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	delete(s.index, inst.id)
	for i := pos; i < len(s.order); i++ {
		s.index[s.order[i].id] = i
	}
}

// Instances returns the registered instances in tick order.
func (s *Scheduler) Instances() []*Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Instance, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of registered instances.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Tick advances every registered instance by the configured timestep and
// returns the number of instances whose step failed.
func (s *Scheduler) Tick(ctx context.Context) int {
	return s.TickWith(ctx, s.dt)
}

// TickWith advances every registered instance by dt.
func (s *Scheduler) TickWith(ctx context.Context, dt float64) int {
	snapshot := s.Instances()
	if len(snapshot) == 0 {
		return 0
	}

	errs := make([]error, len(snapshot))
	if s.workers > 1 {
		s.tickParallel(ctx, snapshot, dt, errs)
	} else {
		for i, inst := range snapshot {
			errs[i] = s.stepOne(ctx, inst, dt)
		}
	}

	failures := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failures++
		if simErr, ok := err.(*errors.Error); ok {
			s.sink.Record(snapshot[i].id, simErr)
		} else {
			s.sink.Record(snapshot[i].id,
				errors.NativeFault(snapshot[i].id, "step failed", err))
		}
	}
	if failures > 0 {
		s.log.Debug("tick completed with failures",
			zap.Int("instances", len(snapshot)),
			zap.Int("failures", failures))
	}
	return failures
}

// stepOne advances a single instance, skipping it when it was deregistered
// after the tick snapshot was taken.
func (s *Scheduler) stepOne(ctx context.Context, inst *Instance, dt float64) error {
	s.mu.Lock()
	_, registered := s.index[inst.id]
	s.mu.Unlock()
	if !registered {
		return nil
	}
	return s.stepper.Step(ctx, inst, dt)
}

func (s *Scheduler) tickParallel(ctx context.Context, snapshot []*Instance, dt float64, errs []error) {
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.workers
	if workers > len(snapshot) {
		workers = len(snapshot)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = s.stepOne(ctx, snapshot[i], dt)
			}
		}()
	}
	for i := range snapshot {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
