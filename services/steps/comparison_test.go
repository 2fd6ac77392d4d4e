package steps_test

import (
	"testing"

	"gradeflow/api/services/steps"
)

func TestComparisonMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		operator steps.Operator
		expected any
		actual   any
		want     bool
	}{
		{"equal numbers", steps.OpEqual, float64(5), float64(5), true},
		{"equal mixed numeric types", steps.OpEqual, int64(5), float64(5), true},
		{"equal strings", steps.OpEqual, "abc", "abc", true},
		{"unequal strings", steps.OpEqual, "abc", "abd", false},
		{"equal bools", steps.OpEqual, true, true, true},
		{"number vs string", steps.OpEqual, float64(5), "5", false},
		{"less than met", steps.OpLessThan, float64(10), float64(3), true},
		{"less than not met", steps.OpLessThan, float64(3), float64(10), false},
		{"greater than met", steps.OpGreaterThan, float64(3), float64(10), true},
		{"greater than strings", steps.OpGreaterThan, "apple", "banana", true},
		{"ordered type mismatch is false", steps.OpLessThan, float64(1), "zzz", false},
		{"ordered nil is false", steps.OpGreaterThan, float64(1), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &steps.Comparison{Operator: tt.operator, Value: tt.expected}
			if got := c.Matches(tt.actual); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestComparisonValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cmp     steps.Comparison
		wantErr bool
	}{
		{"equal accepts anything", steps.Comparison{Operator: steps.OpEqual, Value: []any{1, 2}}, false},
		{"less than over number", steps.Comparison{Operator: steps.OpLessThan, Value: float64(3)}, false},
		{"greater than over list", steps.Comparison{Operator: steps.OpGreaterThan, Value: []any{1}}, true},
		{"unknown operator", steps.Comparison{Operator: "!=", Value: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cmp.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
