package skills

import (
	"math"
	"testing"
)

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name   string
		in     float64
		want   float64
		wantOK bool
	}{
		{"zero", 0, 0, true},
		{"already one decimal", 4.5, 4.5, true},
		{"rounds down", 3.14159, 3.1, true},
		{"half rounds away from zero", 2.25, 2.3, true},
		{"negative half rounds away from zero", -2.25, -2.3, true},
		{"NaN is absent", math.NaN(), 0, false},
		{"+Inf is absent", math.Inf(1), 0, false},
		{"-Inf is absent", math.Inf(-1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeScore(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("NormalizeScore(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeOptional_AbsentIsNotZero(t *testing.T) {
	if got := NormalizeOptional(nil); got != nil {
		t.Errorf("NormalizeOptional(nil) = %v, want nil", *got)
	}
	nan := math.NaN()
	if got := NormalizeOptional(&nan); got != nil {
		t.Errorf("NormalizeOptional(NaN) = %v, want nil", *got)
	}
	inf := math.Inf(1)
	if got := NormalizeOptional(&inf); got != nil {
		t.Errorf("NormalizeOptional(Inf) = %v, want nil", *got)
	}

	zero := 0.0
	got := NormalizeOptional(&zero)
	if got == nil {
		t.Fatal("NormalizeOptional(0) = nil, want 0")
	}
	if *got != 0 {
		t.Errorf("NormalizeOptional(0) = %v, want 0", *got)
	}
}
