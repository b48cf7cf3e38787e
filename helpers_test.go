package detecs_test

import (
	"context"
	"sync"

	detecs "github.com/arkavel/detecs"
)

// stubSystem is a minimal scheduler participant for ordering tests.
type stubSystem struct {
	desc detecs.SystemDescriptor
	run  func(ctx context.Context, exec detecs.ExecutionContext) error
}

func (s *stubSystem) Descriptor() detecs.SystemDescriptor { return s.desc }

func (s *stubSystem) Run(ctx context.Context, exec detecs.ExecutionContext) error {
	if s.run == nil {
		return nil
	}
	return s.run(ctx, exec)
}

func sys(name string, phase detecs.Phase) *stubSystem {
	return &stubSystem{desc: detecs.SystemDescriptor{Name: name, Phase: phase}}
}

func sysAfter(name string, phase detecs.Phase, after ...string) *stubSystem {
	return &stubSystem{desc: detecs.SystemDescriptor{Name: name, Phase: phase, After: after}}
}

func sysBefore(name string, phase detecs.Phase, before ...string) *stubSystem {
	return &stubSystem{desc: detecs.SystemDescriptor{Name: name, Phase: phase, Before: before}}
}

func planNames(systems []detecs.System) []string {
	names := make([]string, 0, len(systems))
	for _, s := range systems {
		names = append(names, s.Descriptor().Name)
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// recordLogger captures log calls for assertions.
type recordLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordLogger) record(msg string) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
}

func (l *recordLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func (l *recordLogger) Contains(substr string) bool {
	for _, msg := range l.Messages() {
		if msg == substr {
			return true
		}
	}
	return false
}

func (l *recordLogger) With(string, any) detecs.Logger { return l }
func (l *recordLogger) Debug(msg string, _ ...any)     { l.record(msg) }
func (l *recordLogger) Info(msg string, _ ...any)      { l.record(msg) }
func (l *recordLogger) Warn(msg string, _ ...any)      { l.record(msg) }
func (l *recordLogger) Error(msg string, _ ...any)     { l.record(msg) }
