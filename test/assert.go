// Package test holds the small assertion helpers shared by the package
// tests.
package test

import "testing"

func Equal[T comparable](t *testing.T, expected, actual T) {
	t.Helper()

	if expected != actual {
		t.Errorf(""+
			"Not equal: \n"+
			"Expected: %v\n"+
			"Actual: %v", expected, actual)
	}
}

func True(t *testing.T, ok bool) {
	t.Helper()

	if !ok {
		t.Error("Expected true, got false")
	}
}

func False(t *testing.T, ok bool) {
	t.Helper()

	if ok {
		t.Error("Expected false, got true")
	}
}

func NoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func Error(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Error("Expected an error, got nil")
	}
}
