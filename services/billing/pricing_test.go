package billing

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Art", "art"},
		{"  Ballet   Intermedio ", "ballet intermedio"},
		{"MUSIC", "music"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeName(tc.input); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsPlaceholderName(t *testing.T) {
	for _, s := range []string{"", "N/A", "na", " - ", "Ninguna"} {
		if !IsPlaceholderName(s) {
			t.Errorf("expected %q to be a placeholder", s)
		}
	}
	if IsPlaceholderName("Art") {
		t.Error("Art must not be a placeholder")
	}
}

func TestResolverFallbackChain(t *testing.T) {
	r := NewResolver(map[string]int64{
		"Art":               11000,
		"Ballet Intermedio": 9500,
		"Ballet":            9000,
	})

	tests := []struct {
		name    string
		academy string
		level   string
		want    int64
	}{
		{"exact match", "art", "", 11000},
		{"level combo beats base", "Ballet", "Intermedio", 9500},
		{"base price without level entry", "Ballet", "Inicial", 9000},
		{"substring match", "Taller de Art", "", 11000},
		{"defaults table", "Robotics", "", 15000},
		{"unknown bills zero", "Cooking", "", 0},
		{"placeholder is free", "N/A", "", 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Resolve(tc.academy, tc.level); got != tc.want {
				t.Errorf("Resolve(%q, %q) = %d, want %d", tc.academy, tc.level, got, tc.want)
			}
		})
	}
}

func TestSubstringMatchIsDeterministic(t *testing.T) {
	table := map[string]int64{"a": 1, "ab": 2, "abc": 3}
	for i := 0; i < 50; i++ {
		price, ok := substringMatch(table, "a")
		if !ok || price != 3 {
			t.Fatalf("iteration %d: got (%d, %v), want the longest key's price 3", i, price, ok)
		}
	}

	// Equal-length candidates break ties lexicographically.
	tied := map[string]int64{"arx": 6, "art": 5}
	for i := 0; i < 50; i++ {
		price, ok := substringMatch(tied, "ar")
		if !ok || price != 5 {
			t.Fatalf("iteration %d: got (%d, %v), want 5 from the lexicographically first key", i, price, ok)
		}
	}
}
