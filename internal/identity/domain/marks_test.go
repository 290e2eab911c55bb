package domain

import "testing"

func TestFindInvalidMark(t *testing.T) {
	tests := []struct {
		name   string
		result map[string]any
		want   string
	}{
		{
			name:   "empty result",
			result: map[string]any{},
			want:   "",
		},
		{
			name: "all passed",
			result: map[string]any{
				"document": map[string]any{"face_match": float64(1), "name": float64(1)},
			},
			want: "",
		},
		{
			name: "nested failure",
			result: map[string]any{
				"document": map[string]any{
					"face_match": float64(0),
					"name":       float64(1),
				},
			},
			want: "document.face_match",
		},
		{
			name: "first failure in key order wins",
			result: map[string]any{
				"zeta":  map[string]any{"check": float64(0)},
				"alpha": map[string]any{"check": float64(0)},
			},
			want: "alpha.check",
		},
		{
			name: "deeply nested",
			result: map[string]any{
				"address": map[string]any{
					"proof": map[string]any{"match": float64(0)},
				},
			},
			want: "address.proof.match",
		},
		{
			name: "string encoded zero",
			result: map[string]any{
				"document": map[string]any{"dob": "0"},
			},
			want: "document.dob",
		},
		{
			name: "boolean failure",
			result: map[string]any{
				"face": map[string]any{"liveness": false},
			},
			want: "face.liveness",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindInvalidMark(tt.result); got != tt.want {
				t.Errorf("FindInvalidMark() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindInvalidMarkDeterministic(t *testing.T) {
	result := map[string]any{
		"b": map[string]any{"x": float64(0)},
		"a": map[string]any{"y": float64(0)},
		"c": float64(0),
	}
	first := FindInvalidMark(result)
	for i := 0; i < 50; i++ {
		if got := FindInvalidMark(result); got != first {
			t.Fatalf("iteration %d: got %q, want stable %q", i, got, first)
		}
	}
	if first != "a.y" {
		t.Errorf("FindInvalidMark() = %q, want a.y", first)
	}
}
