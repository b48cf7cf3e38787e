package detecs_test

import (
	"errors"
	"testing"

	detecs "github.com/arkavel/detecs"
)

type stoppableService struct {
	name string
	log  *[]string
}

func (s *stoppableService) Stop() error {
	*s.log = append(*s.log, s.name)
	return nil
}

func TestContainerRegisterAndResolve(t *testing.T) {
	c := detecs.NewServiceContainer(nil)
	if err := c.Register("clock", "monotonic"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.Register("clock", "other"); err == nil {
		t.Fatalf("duplicate registration should fail")
	}

	v, err := c.Resolve("clock")
	if err != nil || v.(string) != "monotonic" {
		t.Fatalf("resolve: %v %v", v, err)
	}
	if _, err := c.Resolve("missing"); !errors.Is(err, detecs.ErrServiceNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestContainerFactoryRunsPerResolve(t *testing.T) {
	c := detecs.NewServiceContainer(nil)
	calls := 0
	c.RegisterFactory("spawner", func(*detecs.ServiceContainer) (any, error) {
		calls++
		return calls, nil
	})

	first, _ := c.Resolve("spawner")
	second, _ := c.Resolve("spawner")
	if first.(int) != 1 || second.(int) != 2 {
		t.Fatalf("factory should run per resolve, got %v %v", first, second)
	}
}

func TestContainerChildFallsBackToParent(t *testing.T) {
	parent := detecs.NewServiceContainer(nil)
	parent.Register("logger", "root")

	child := parent.Child()
	child.Register("local", 7)

	if v, err := child.Resolve("logger"); err != nil || v.(string) != "root" {
		t.Fatalf("child should fall back to parent, got %v %v", v, err)
	}
	if _, err := parent.Resolve("local"); !errors.Is(err, detecs.ErrServiceNotFound) {
		t.Fatalf("parent must not see child services, got %v", err)
	}
}

func TestContainerSealPanicsOnLateRegistration(t *testing.T) {
	c := detecs.NewServiceContainer(nil)
	c.Register("early", 1)
	c.Seal()
	if !c.Sealed() {
		t.Fatalf("container should report sealed")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on post-seal registration")
		}
	}()
	c.Register("late", 2)
}

func TestContainerCloseReverseOrder(t *testing.T) {
	var log []string
	c := detecs.NewServiceContainer(nil)
	child := c.Child()

	c.Register("a", &stoppableService{name: "a", log: &log})
	c.Register("b", &stoppableService{name: "b", log: &log})
	child.Register("c", &stoppableService{name: "c", log: &log})

	c.Close()

	// Children close first, then owned services in reverse registration.
	want := []string{"c", "b", "a"}
	if !equalNames(log, want) {
		t.Fatalf("expected teardown %v, got %v", want, log)
	}

	if _, err := c.Resolve("a"); !errors.Is(err, detecs.ErrContainerClosed) {
		t.Fatalf("resolve after close should fail, got %v", err)
	}
	// Idempotent.
	c.Close()
}

func TestContainerSwallowsDisposalErrors(t *testing.T) {
	logger := &recordLogger{}
	c := detecs.NewServiceContainer(logger)
	c.Register("broken", failingCloser{})
	c.Register("fine", "value")

	c.Close()
	if !logger.Contains("service disposal failed") {
		t.Fatalf("disposal error should be logged, got %v", logger.Messages())
	}
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("refused") }
