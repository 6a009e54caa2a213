package lir

import (
	"errors"
	"testing"
)

func newTestEnv() *Env {
	return NewEnv(Options{})
}

// wantKind fails the test unless err is a checker error of kind want.
func wantKind(t *testing.T, err error, want ErrorKind) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if e.Kind != want {
		t.Fatalf("expected %s, got %s: %v", want, e.Kind, err)
	}
	return e
}

func mustEqual(t *testing.T, env *Env, got, want Type) {
	t.Helper()
	eq, err := Equal(got, want, env)
	if err != nil {
		t.Fatalf("Equal(%s, %s): %v", got, want, err)
	}
	if !eq {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func listEnv() *Env {
	env := newTestEnv()
	env.DefineType("List", Struct(map[string]Type{
		"head": Int,
		"tail": Ptr(Sym("List")),
	}))
	return env
}
