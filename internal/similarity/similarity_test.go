package similarity

import (
	"math"
	"testing"
)

func TestDice(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 1},
		{"identical", "event loop", "event loop", 1},
		{"identical ignoring case", "Event Loop", "event loop", 1},
		{"identical ignoring whitespace", "eventloop", "event loop", 1},
		{"one empty", "closures", "", 0},
		{"single rune vs word", "a", "abc", 0},
		{"disjoint", "night", "zzzz", 0},
		{"classic night/nacht", "night", "nacht", 0.25},
		{"repeated bigrams counted as multiset", "aaaa", "aa", 2.0 / 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dice(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Dice(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDiceSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"closures capture variables", "a closure captures its environment"},
		{"", "non-empty"},
		{"ab", "ba"},
		{"the event loop processes the task queue", "tasks run on the event loop"},
	}
	for _, p := range pairs {
		ab := Dice(p[0], p[1])
		ba := Dice(p[1], p[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("Dice(%q, %q) = %v but reversed = %v", p[0], p[1], ab, ba)
		}
	}
}

func TestDiceBounds(t *testing.T) {
	pairs := [][2]string{
		{"hoisting moves declarations to the top", "hoisting"},
		{"x", "y"},
		{"some long answer about garbage collection and memory", "short"},
	}
	for _, p := range pairs {
		got := Dice(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Dice(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestDiceIdentityNonEmpty(t *testing.T) {
	for _, s := range []string{"a", "ab", "a longer sentence with Mixed Case"} {
		if got := Dice(s, s); got != 1 {
			t.Errorf("Dice(%q, %q) = %v, want 1", s, s, got)
		}
	}
}
