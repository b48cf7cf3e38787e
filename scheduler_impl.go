package detecs

import (
	"context"
	"fmt"
	"time"
)

// Scheduler drives a world through fixed-step and frame-step phases in
// the planned order. One logical simulation goroutine owns it; within
// a phase, systems run strictly sequentially and each writes only
// through its own command buffer. The barrier at the end of every step
// applies the accumulated buffers and drains the external queue.
type Scheduler struct {
	world    *World
	plan     *Plan
	logger   Logger
	observer SchedulerObserver

	fixedTick   uint64
	frameIndex  uint64
	initialized bool
}

type SchedulerOption func(*Scheduler)

// WithSchedulerLogger overrides the world logger for scheduler output.
func WithSchedulerLogger(logger Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObservation wires the built-in observer chain.
func WithObservation(settings ObservationSettings) SchedulerOption {
	return func(s *Scheduler) {
		s.observer = buildObserverChain(s.logger, settings)
	}
}

// NewScheduler binds a plan to a world.
func NewScheduler(world *World, plan *Plan, opts ...SchedulerOption) (*Scheduler, error) {
	if world == nil {
		return nil, fmt.Errorf("detecs: scheduler requires a world")
	}
	if plan == nil {
		return nil, fmt.Errorf("detecs: scheduler requires a plan")
	}
	s := &Scheduler{
		world:    world,
		plan:     plan,
		logger:   world.Logger(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Init runs lifecycle hooks in forward phase order. It is idempotent.
func (s *Scheduler) Init() error {
	if s.initialized {
		return nil
	}
	for _, sys := range s.plan.Forward() {
		init, ok := sys.(SystemInitializer)
		if !ok {
			continue
		}
		if err := init.Init(s.world); err != nil {
			return fmt.Errorf("detecs: init of system %s failed: %w", sys.Descriptor().Name, err)
		}
	}
	s.initialized = true
	return nil
}

// Shutdown runs lifecycle hooks in exact reverse of the forward order.
func (s *Scheduler) Shutdown() {
	for _, sys := range s.plan.Reverse() {
		if fin, ok := sys.(SystemFinalizer); ok {
			fin.Shutdown(s.world)
		}
	}
	s.initialized = false
}

// TickIndex returns the number of completed fixed steps.
func (s *Scheduler) TickIndex() uint64 { return s.fixedTick }

// FrameIndex returns the number of completed frame steps.
func (s *Scheduler) FrameIndex() uint64 { return s.frameIndex }

// RunFixedStep executes one deterministic simulation step: the four
// fixed phases in order, then the barrier.
func (s *Scheduler) RunFixedStep(ctx context.Context, dt time.Duration) error {
	for _, phase := range FixedPhases {
		if err := s.runPhase(ctx, phase, s.fixedTick, dt); err != nil {
			return err
		}
	}
	s.flushBarrier(s.fixedTick, false)
	s.fixedTick++
	return nil
}

// RunFrame executes one variable-rate frame step: the four frame
// phases, the barrier, and the once-per-frame binder apply pass.
func (s *Scheduler) RunFrame(ctx context.Context, dt time.Duration) error {
	for _, phase := range FramePhases {
		if err := s.runPhase(ctx, phase, s.frameIndex, dt); err != nil {
			return err
		}
	}
	s.flushBarrier(s.frameIndex, true)
	s.world.Router().ApplyPass()
	s.frameIndex++
	return nil
}

// Run advances the simulation by steps fixed ticks.
func (s *Scheduler) Run(ctx context.Context, steps int, dt time.Duration) error {
	for i := 0; i < steps; i++ {
		if err := s.RunFixedStep(ctx, dt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) runPhase(ctx context.Context, phase Phase, tick uint64, dt time.Duration) error {
	systems := s.plan.PhaseSystems(phase)
	summary := PhaseSummary{Phase: phase, Tick: tick, SystemsTotal: len(systems)}
	start := time.Now()

	for _, sys := range systems {
		if err := ctx.Err(); err != nil {
			summary.Error = err
			summary.Duration = time.Since(start)
			s.observer.PhaseCompleted(summary)
			return err
		}

		desc := sys.Descriptor()
		exec := &systemExecutionContext{
			world:  s.world,
			dt:     dt,
			tick:   tick,
			logger: s.logger.With("system", desc.Name),
		}
		err := sys.Run(ctx, exec)
		exec.closeBuffer()
		if err != nil {
			wrapped := fmt.Errorf("detecs: system %s failed: %w", desc.Name, err)
			summary.Error = wrapped
			summary.Duration = time.Since(start)
			s.observer.PhaseCompleted(summary)
			return wrapped
		}
		summary.SystemsExecuted++
	}

	summary.Duration = time.Since(start)
	s.observer.PhaseCompleted(summary)
	return nil
}

func (s *Scheduler) flushBarrier(tick uint64, frame bool) {
	summary := s.world.Flush()
	summary.Tick = tick
	summary.Frame = frame
	s.observer.BarrierCompleted(summary)
}

// systemExecutionContext is the scoped world access handed to one
// system for one run. The buffer opens lazily and is closed by the
// scheduler when the system returns.
type systemExecutionContext struct {
	world  *World
	dt     time.Duration
	tick   uint64
	logger Logger
	buf    *CommandBuffer
}

func (c *systemExecutionContext) World() *World { return c.world }

func (c *systemExecutionContext) TimeDelta() time.Duration { return c.dt }

func (c *systemExecutionContext) TickIndex() uint64 { return c.tick }

func (c *systemExecutionContext) Logger() Logger { return c.logger }

func (c *systemExecutionContext) Buffer() *CommandBuffer {
	if c.buf == nil {
		c.buf = c.world.NewBuffer()
	}
	return c.buf
}

func (c *systemExecutionContext) closeBuffer() {
	if c.buf == nil {
		return
	}
	if _, err := c.buf.Close(); err != nil {
		c.logger.Warn("buffer submission rejected", "err", err)
	}
	c.buf = nil
}

var _ ExecutionContext = (*systemExecutionContext)(nil)

type noopObserver struct{}

func (noopObserver) PhaseCompleted(PhaseSummary)     {}
func (noopObserver) BarrierCompleted(BarrierSummary) {}
