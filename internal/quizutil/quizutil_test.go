package quizutil

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

func TestShuffleIsPermutation(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	incorrect := []string{"Paris", "Rome", "Berlin"}
	for i := 0; i < 50; i++ {
		all := AnswerOrder("Madrid", incorrect, rnd)
		if len(all) != 4 {
			t.Fatalf("expected 4 answers, got %d", len(all))
		}
		got := append([]string(nil), all...)
		sort.Strings(got)
		want := []string{"Berlin", "Madrid", "Paris", "Rome"}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("expected permutation of %v, got %v", want, all)
			}
		}
	}
	if incorrect[0] != "Paris" || incorrect[1] != "Rome" || incorrect[2] != "Berlin" {
		t.Fatalf("input mutated: %v", incorrect)
	}
}

func TestShuffleCoversAllPositions(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[Shuffle([]string{"a", "b", "c"}, rnd)[0]] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected every item to reach the first slot, saw %v", seen)
	}
}

func TestDecodeEntities(t *testing.T) {
	cases := map[string]string{
		"&quot;Hello&quot;":      `"Hello"`,
		"Rock &amp; Roll":        "Rock & Roll",
		"It&#039;s":              "It's",
		"Caf&eacute;":            "Café",
		"&lt;b&gt;":              "<b>",
		"&notarealentity; stays": "&notarealentity; stays",
		"plain":                  "plain",
	}
	for in, want := range cases {
		if got := DecodeEntities(in); got != want {
			t.Fatalf("DecodeEntities(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:   "00:00",
		5:   "00:05",
		65:  "01:05",
		300: "05:00",
		-3:  "00:00",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestScorePercentage(t *testing.T) {
	if got := ScorePercentage(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty quiz, got %d", got)
	}
	if got := ScorePercentage(2, 3); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
	if got := ScorePercentage(1, 8); got != 13 {
		t.Fatalf("expected 12.5 to round to 13, got %d", got)
	}
}

func TestRunningAverage(t *testing.T) {
	got := RunningAverage(50, 2, 100)
	if math.Abs(got-66.6667) > 0.001 {
		t.Fatalf("expected ~66.67, got %f", got)
	}
	if got := RunningAverage(0, 0, 40); got != 40 {
		t.Fatalf("expected first score to become the average, got %f", got)
	}
}
