package detecs

import (
	"context"
	"io"
	"time"
)

// Phase is one of the eight fixed execution buckets a system is
// statically assigned to. Four fixed-step phases run at the simulation
// rate; four frame phases run at the host's variable frame rate.
type Phase uint8

const (
	// PhaseUnknown holds systems with no phase declaration. They are
	// retained in the plan but never executed.
	PhaseUnknown Phase = iota
	PhaseFrameInput
	PhaseFrameSync
	PhaseFrameView
	PhaseFrameUI
	PhaseFixedInput
	PhaseFixedDecision
	PhaseFixedSimulation
	PhaseFixedPost
)

// FixedPhases lists the deterministic fixed-step phases in execution order.
var FixedPhases = []Phase{PhaseFixedInput, PhaseFixedDecision, PhaseFixedSimulation, PhaseFixedPost}

// FramePhases lists the variable-rate frame phases in execution order.
var FramePhases = []Phase{PhaseFrameInput, PhaseFrameSync, PhaseFrameView, PhaseFrameUI}

// ForwardPhaseOrder is the derived order across all phases used for
// forward initialization; shutdown walks it in exact reverse.
var ForwardPhaseOrder = []Phase{
	PhaseFrameInput, PhaseFrameSync, PhaseFrameView, PhaseFrameUI,
	PhaseFixedInput, PhaseFixedDecision, PhaseFixedSimulation, PhaseFixedPost,
}

func (p Phase) String() string {
	switch p {
	case PhaseFrameInput:
		return "frame-input"
	case PhaseFrameSync:
		return "frame-sync"
	case PhaseFrameView:
		return "frame-view"
	case PhaseFrameUI:
		return "frame-ui"
	case PhaseFixedInput:
		return "fixed-input"
	case PhaseFixedDecision:
		return "fixed-decision"
	case PhaseFixedSimulation:
		return "fixed-simulation"
	case PhaseFixedPost:
		return "fixed-post"
	default:
		return "unknown"
	}
}

// IsFixed reports whether the phase belongs to the fixed-step pipeline.
func (p Phase) IsFixed() bool {
	return p >= PhaseFixedInput && p <= PhaseFixedPost
}

// SystemDescriptor declares a system's identity, phase, and ordering
// constraints. Constraints are directed edges scoped strictly within
// the declared phase; an edge naming a system absent from that phase
// is dropped with a warning when the plan is built.
type SystemDescriptor struct {
	Name   string
	Phase  Phase
	Before []string
	After  []string
}

// System represents executable logic scheduled by phase.
type System interface {
	Descriptor() SystemDescriptor
	Run(ctx context.Context, exec ExecutionContext) error
}

// SystemInitializer is implemented by systems with startup work. Init
// hooks run once, in forward phase order, before the first step.
type SystemInitializer interface {
	Init(world *World) error
}

// SystemFinalizer is implemented by systems with teardown work.
// Shutdown hooks run once, in exact reverse of the forward order.
type SystemFinalizer interface {
	Shutdown(world *World)
}

// ExecutionContext supplies a system with scoped access to the world.
// Buffer lazily opens the system's write session; the scheduler closes
// it when the system returns.
type ExecutionContext interface {
	World() *World
	TimeDelta() time.Duration
	TickIndex() uint64
	Logger() Logger
	Buffer() *CommandBuffer
}

// ComponentType identifies a component storage bucket.
type ComponentType string

// StorageProvider manages component storage backends. Storage
// internals live outside this core; the provider is the seam the
// command pipeline and binding router mutate and read through.
type StorageProvider interface {
	RegisterComponent(ComponentType, StorageStrategy) error
	View(ComponentType) (ComponentView, error)
	Each(func(ComponentStore))
}

// StorageStrategy describes how a component type is stored internally.
type StorageStrategy interface {
	Name() string
	NewStore(ComponentType) ComponentStore
}

// ComponentStore permits read/write access to component instances.
type ComponentStore interface {
	ComponentView
	Set(EntityID, any) error
	Remove(EntityID) bool
	Clear()
}

// ComponentView exposes read-only iteration over stored components.
type ComponentView interface {
	ComponentType() ComponentType
	Len() int
	Has(EntityID) bool
	Get(EntityID) (any, bool)
	Iterate(func(EntityID, any) bool)
}

// DeltaKind classifies one component change.
type DeltaKind uint8

const (
	// DeltaAdded records a component newly present on an entity.
	DeltaAdded DeltaKind = iota
	// DeltaChanged records a replaced component value.
	DeltaChanged
	// DeltaRemoved records a removed component; Value is nil.
	DeltaRemoved
	// DeltaSnapshot records already-present state synthesized for a
	// binder at attach time.
	DeltaSnapshot
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaAdded:
		return "added"
	case DeltaChanged:
		return "changed"
	case DeltaRemoved:
		return "removed"
	case DeltaSnapshot:
		return "snapshot"
	default:
		return "invalid"
	}
}

// Delta is an immutable record of one component change on one entity,
// carrying the post-change value (nil for Removed).
type Delta struct {
	Kind      DeltaKind
	Entity    EntityID
	Component ComponentType
	Value     any
}

// Binder is a per-entity presentation adapter. It owns only external
// view state, never simulation state; it reads the world and receives
// deltas but all simulation writes go through the command pipeline.
type Binder interface {
	// ApplyOrder is the primary sort key for dispatch and the
	// per-frame apply pass; ties break by attach sequence.
	ApplyOrder() int
	// Interests lists the component types whose deltas this binder
	// receives. An empty list subscribes to nothing.
	Interests() []ComponentType
	// HandleDelta receives one delta for an interested component type.
	HandleDelta(delta Delta)
	// Update is the once-per-frame apply step.
	Update(entity EntityID, world *World)
}

// BinderFinisher lets a binder mark itself permanently finished. A
// finished binder stays attached but silently stops receiving applies.
type BinderFinisher interface {
	Finished() bool
}

// ContextObserver is implemented by binders that want attach/detach
// notifications for per-entity contexts, independent of the delta
// channel.
type ContextObserver interface {
	ContextAttached(entity EntityID, ctx Context)
	ContextDetached(entity EntityID, ctx Context)
}

// Context is a per-entity auxiliary resource consumed by presentation
// adapters. Lifecycle hooks are optional; see ContextInitializer,
// ContextFinalizer and ContextReinitializer.
type Context any

// ContextInitializer runs exactly once when the context attaches.
type ContextInitializer interface {
	InitContext(entity EntityID, world *World)
}

// ContextFinalizer runs exactly once when the context detaches or is
// replaced by another context of the same type.
type ContextFinalizer interface {
	DeinitContext(entity EntityID, world *World)
}

// ContextReinitializer is the fast path used by Reinit; contexts
// without it fall back to deinitialize-then-initialize.
type ContextReinitializer interface {
	ReinitContext(entity EntityID, world *World)
}

// Logger captures structured log output from the runtime.
type Logger interface {
	With(key string, value any) Logger
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SchedulerObserver receives summaries after phases complete and
// after each step's barrier flush.
type SchedulerObserver interface {
	PhaseCompleted(summary PhaseSummary)
	BarrierCompleted(summary BarrierSummary)
}

// PhaseSummary captures execution metadata for one phase of one step.
type PhaseSummary struct {
	Phase           Phase
	Tick            uint64
	Duration        time.Duration
	SystemsTotal    int
	SystemsExecuted int
	Error           error
}

// BarrierSummary captures one barrier flush at the end of a step.
type BarrierSummary struct {
	Tick             uint64
	Frame            bool
	Buffers          int
	CommandsApplied  int
	DeltasDispatched int
	ExternalDrained  int
}

// ObservationLogFormat controls structured logging encoding.
type ObservationLogFormat uint8

const (
	ObservationLogFormatJSON ObservationLogFormat = iota
	ObservationLogFormatKeyValue
)

// ObservationSettings toggles built-in observer integrations.
type ObservationSettings struct {
	Observer                SchedulerObserver
	EnableStructuredLogging bool
	LoggingFormat           ObservationLogFormat
	StructuredLogger        Logger
	EnablePrometheus        bool
	PrometheusCollector     PrometheusCollector
	PrometheusOptions       *PrometheusCollectorOptions
	EnableSigNoz            bool
	SigNozExporter          SigNozExporter
	SigNozOptions           *SigNozOptions
}

// PrometheusCollector handles scheduler summaries for Prometheus-style metrics.
type PrometheusCollector interface {
	ObservePhase(summary PhaseSummary)
	ObserveBarrier(summary BarrierSummary)
}

type PrometheusCollectorOptions struct {
	Writer          io.Writer
	DurationBuckets []time.Duration
}

// SigNozExporter handles scheduler summaries for SigNoz platforms.
type SigNozExporter interface {
	ExportPhase(summary PhaseSummary)
	ExportBarrier(summary BarrierSummary)
}

type SigNozOptions struct {
	Writer      io.Writer
	ServiceName string
}
