package logging

import "testing"

func TestNewDevelopmentForNonProductionEnvironment(t *testing.T) {
	logger, err := New("development")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestNewProductionBuildsLogger(t *testing.T) {
	logger, err := New("production")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestMustPanicsNever(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Must panicked unexpectedly: %v", r)
		}
	}()
	_ = Must("development")
}
