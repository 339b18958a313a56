package utils

import (
	"math"
	"testing"
)

func AssertTrue(t *testing.T, a bool) {
	t.Helper()
	if !a {
		t.Fatalf("Expected true, got false")
	}
}

func AssertEqual(t *testing.T, a interface{}, b interface{}) {
	t.Helper()
	if a != b {
		t.Fatalf("Expected equal: %v != %v\n", a, b)
	}
}

func AssertClose(t *testing.T, a, b, eps float64) {
	t.Helper()
	if math.Abs(a-b) > eps {
		t.Fatalf("Expected %v within %v of %v", a, eps, b)
	}
}

func AssertNaN(t *testing.T, a float64) {
	t.Helper()
	if !math.IsNaN(a) {
		t.Fatalf("Expected NaN, got %v", a)
	}
}
