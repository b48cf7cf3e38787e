package detecs

import (
	"fmt"
	"sort"
	"strings"
)

// SystemSet collects systems prior to plan construction. Registration
// is the only place phase and ordering declarations enter the runtime;
// there is no reflection-driven scanning.
type SystemSet struct {
	systems  []System
	byName   map[string]SystemDescriptor
	disabled map[string]struct{}
}

func NewSystemSet() *SystemSet {
	return &SystemSet{
		byName:   make(map[string]SystemDescriptor),
		disabled: make(map[string]struct{}),
	}
}

// Add registers a system. One name registered under two different
// phases is a fatal configuration error, raised immediately.
func (s *SystemSet) Add(sys System) error {
	if sys == nil {
		return fmt.Errorf("detecs: nil system")
	}
	desc := sys.Descriptor()
	if desc.Name == "" {
		return fmt.Errorf("detecs: system descriptor requires a name")
	}
	if prev, exists := s.byName[desc.Name]; exists {
		if prev.Phase != desc.Phase {
			return fmt.Errorf("%w: %s declares %s and %s", ErrConflictingPhase, desc.Name, prev.Phase, desc.Phase)
		}
		return fmt.Errorf("%w: %s", ErrDuplicateSystem, desc.Name)
	}
	s.byName[desc.Name] = desc
	s.systems = append(s.systems, sys)
	return nil
}

// Disable excludes a registered system from plans built afterwards.
// Unknown names are tolerated so presets can disable optional systems.
func (s *SystemSet) Disable(name string) {
	s.disabled[name] = struct{}{}
}

// Enable reverts a Disable.
func (s *SystemSet) Enable(name string) {
	delete(s.disabled, name)
}

// Has reports whether a system name is registered.
func (s *SystemSet) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Constrain appends ordering edges to a registered system without
// touching the system itself. Presets use this to tighten ordering
// beyond what the system declared.
func (s *SystemSet) Constrain(name string, before, after []string) error {
	desc, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("detecs: cannot constrain unregistered system %s", name)
	}
	desc.Before = append(append([]string(nil), desc.Before...), before...)
	desc.After = append(append([]string(nil), desc.After...), after...)
	s.byName[name] = desc
	return nil
}

// Plan is a deterministic execution order produced by BuildPlan. It is
// immutable after construction: the same system set and constraints
// always produce byte-identical ordering, across runs and machines.
type Plan struct {
	phases  map[Phase][]System
	forward []System
	reverse []System
	unknown []System
}

// PhaseSystems returns the execution order for one phase.
func (p *Plan) PhaseSystems(phase Phase) []System {
	return append([]System(nil), p.phases[phase]...)
}

// Forward returns the derived order across all phases used for
// initialization: frame phases first, then fixed phases.
func (p *Plan) Forward() []System {
	return append([]System(nil), p.forward...)
}

// Reverse returns the exact reverse of Forward, used for shutdown.
func (p *Plan) Reverse() []System {
	return append([]System(nil), p.reverse...)
}

// Unknown returns systems retained without a phase declaration. They
// never execute.
func (p *Plan) Unknown() []System {
	return append([]System(nil), p.unknown...)
}

// Describe renders the plan one phase per line, for debugging and for
// golden tests locking in ordering determinism.
func (p *Plan) Describe() string {
	var sb strings.Builder
	for _, phase := range ForwardPhaseOrder {
		systems := p.phases[phase]
		if len(systems) == 0 {
			continue
		}
		names := make([]string, 0, len(systems))
		for _, sys := range systems {
			names = append(names, sys.Descriptor().Name)
		}
		fmt.Fprintf(&sb, "%s: %s\n", phase, strings.Join(names, ", "))
	}
	if len(p.unknown) > 0 {
		names := make([]string, 0, len(p.unknown))
		for _, sys := range p.unknown {
			names = append(names, sys.Descriptor().Name)
		}
		fmt.Fprintf(&sb, "unknown (never executed): %s\n", strings.Join(names, ", "))
	}
	return sb.String()
}

// BuildPlan classifies systems into phases and topologically sorts
// each phase. It is a pure build step aside from logging: constraint
// edges referencing a system absent from the phase are dropped with a
// warning, systems without a phase land in the Unknown bucket with a
// warning, and a cycle within one phase fails construction with an
// error naming the systems involved.
func BuildPlan(set *SystemSet, logger Logger) (*Plan, error) {
	if logger == nil {
		logger = NewNopLogger()
	}

	buckets := make(map[Phase][]System)
	var unknown []System
	for _, sys := range set.systems {
		// the set's copy of the descriptor carries Constrain amendments
		desc := set.byName[sys.Descriptor().Name]
		if _, off := set.disabled[desc.Name]; off {
			continue
		}
		if desc.Phase == PhaseUnknown || desc.Phase > PhaseFixedPost {
			logger.Warn("system has no phase declaration, retained but never executed", "system", desc.Name)
			unknown = append(unknown, sys)
			continue
		}
		buckets[desc.Phase] = append(buckets[desc.Phase], sys)
	}
	sort.Slice(unknown, func(i, j int) bool {
		return unknown[i].Descriptor().Name < unknown[j].Descriptor().Name
	})

	plan := &Plan{phases: make(map[Phase][]System), unknown: unknown}
	for _, phase := range ForwardPhaseOrder {
		ordered, err := sortPhase(phase, buckets[phase], set.byName, logger)
		if err != nil {
			return nil, err
		}
		plan.phases[phase] = ordered
		plan.forward = append(plan.forward, ordered...)
	}

	plan.reverse = make([]System, len(plan.forward))
	for i, sys := range plan.forward {
		plan.reverse[len(plan.forward)-1-i] = sys
	}
	return plan, nil
}

// sortPhase runs Kahn's algorithm over the phase's constraint graph.
// Ties among simultaneously ready systems break by ordinal comparison
// of system name, which pins the order across runs and machines.
func sortPhase(phase Phase, systems []System, descs map[string]SystemDescriptor, logger Logger) ([]System, error) {
	if len(systems) == 0 {
		return nil, nil
	}

	byName := make(map[string]System, len(systems))
	names := make([]string, 0, len(systems))
	for _, sys := range systems {
		name := sys.Descriptor().Name
		byName[name] = sys
		names = append(names, name)
	}
	sort.Strings(names)

	// successors[a] contains b when a must run before b.
	successors := make(map[string][]string, len(systems))
	indegree := make(map[string]int, len(systems))
	for _, name := range names {
		indegree[name] = 0
	}
	addEdge := func(from, to string) {
		successors[from] = append(successors[from], to)
		indegree[to]++
	}
	for _, name := range names {
		desc := descs[name]
		for _, target := range desc.Before {
			if _, ok := byName[target]; !ok {
				logger.Warn("ordering constraint references system outside phase, dropped",
					"system", name, "constraint", "before", "target", target, "phase", phase.String())
				continue
			}
			addEdge(name, target)
		}
		for _, target := range desc.After {
			if _, ok := byName[target]; !ok {
				logger.Warn("ordering constraint references system outside phase, dropped",
					"system", name, "constraint", "after", "target", target, "phase", phase.String())
				continue
			}
			addEdge(target, name)
		}
	}

	ready := make([]string, 0, len(names))
	for _, name := range names {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	ordered := make([]System, 0, len(systems))
	for len(ready) > 0 {
		// names entered ready sorted and insertions keep it sorted, so
		// the head is always the ordinal minimum.
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])

		for _, next := range successors[name] {
			indegree[next]--
			if indegree[next] == 0 {
				pos := sort.SearchStrings(ready, next)
				ready = append(ready, "")
				copy(ready[pos+1:], ready[pos:])
				ready[pos] = next
			}
		}
	}

	if len(ordered) != len(systems) {
		remaining := make([]string, 0)
		for _, name := range names {
			if indegree[name] > 0 {
				remaining = append(remaining, name)
			}
		}
		return nil, fmt.Errorf("%w: %s involves [%s]", ErrScheduleCycle, phase, strings.Join(remaining, ", "))
	}
	return ordered, nil
}
