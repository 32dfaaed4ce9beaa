// Package quizutil holds the small pure helpers shared by the quiz flow and the views.
package quizutil

import (
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/net/html"
)

// Shuffle returns a uniformly random permutation of items. The input is not modified.
func Shuffle(items []string, rnd *rand.Rand) []string {
	out := make([]string, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// AnswerOrder returns the correct answer and the incorrect ones in random display order.
func AnswerOrder(correct string, incorrect []string, rnd *rand.Rand) []string {
	all := make([]string, 0, len(incorrect)+1)
	all = append(all, correct)
	all = append(all, incorrect...)
	return Shuffle(all, rnd)
}

// DecodeEntities turns provider text such as "&quot;Hi&quot; &amp; &#039;bye&#039;" into display text.
// Unknown entities are left as-is.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

// FormatDuration renders seconds as MM:SS. Negative input clamps to 00:00.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// ScorePercentage is round(100 * correct / total), or 0 when total is 0.
func ScorePercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// RunningAverage folds score into an average taken over count previous values.
func RunningAverage(avg float64, count int, score int) float64 {
	if count <= 0 {
		return float64(score)
	}
	return (avg*float64(count) + float64(score)) / float64(count+1)
}
