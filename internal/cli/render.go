package cli

import (
	"fmt"
	"io"
	"strings"

	"trivia-quiz/internal/view"
)

// renderText draws a page for the terminal.
func renderText(w io.Writer, p view.Page) {
	switch {
	case p.Login != nil:
		fmt.Fprintf(w, "\n== %s ==\n%s:\n", p.Login.Title, p.Login.Prompt)
	case p.Setup != nil:
		renderSetupText(w, p)
	case p.Question != nil:
		q := p.Question
		fmt.Fprintf(w, "\n%s  [%s]  %.0f%%  time left %s\n", q.Heading, q.Difficulty, q.Progress, q.TimeLeft)
		fmt.Fprintf(w, "%s\n%s\n", q.Category, q.Text)
		for _, a := range q.Answers {
			fmt.Fprintf(w, "  %s) %s\n", a.Label, a.Text)
		}
		fmt.Fprintln(w, "answer with a letter:")
	case p.Results != nil:
		renderResultsText(w, p.Results)
	}
}

func renderSetupText(w io.Writer, p view.Page) {
	s := p.Setup
	fmt.Fprintf(w, "\n== %s ==\n", s.Greeting)
	if s.Stats != nil {
		st := s.Stats
		fmt.Fprintf(w, "quizzes %d  questions %d  correct %d  wrong %d\n", st.TotalQuizzes, st.TotalQuestions, st.TotalCorrect, st.TotalWrong)
		fmt.Fprintf(w, "average %s  best %s  level %s\n", st.AverageScore, st.BestScore, st.PerformanceLevel)
	} else {
		fmt.Fprintln(w, s.FirstQuiz)
	}
	if p.Resume != nil {
		fmt.Fprintf(w, "%s\n[resume] or [new]\n", p.Resume.Message)
		return
	}
	if len(s.Categories) > 0 {
		names := make([]string, len(s.Categories))
		for i, c := range s.Categories {
			names[i] = fmt.Sprintf("%d=%s", c.ID, c.Name)
		}
		fmt.Fprintf(w, "categories: %s\n", strings.Join(names, ", "))
	}
	d := s.Defaults
	fmt.Fprintf(w, "start [--amount %d] [--type %s] [--difficulty easy|medium|hard] [--category id] [--time-limit %d] | logout\n", d.Amount, d.Type, d.TimeLimit)
}

func renderResultsText(w io.Writer, r *view.ResultsView) {
	fmt.Fprintf(w, "\n== %s ==\n", r.Headline)
	fmt.Fprintf(w, "score %d%%  correct %d  wrong %d  unanswered %d  time %s\n",
		r.ScorePercentage, r.CorrectAnswers, r.WrongAnswers, r.Unanswered, r.TimeSpent)
	fmt.Fprintln(w, r.Feedback)
	for _, item := range r.Review {
		mark := "x"
		if item.Correct {
			mark = "+"
		}
		fmt.Fprintf(w, " %s %d. %s\n", mark, item.Number, item.Question)
		switch {
		case !item.Answered:
			fmt.Fprintf(w, "     %s (answer: %s)\n", item.Note, item.CorrectAnswer)
		case !item.Correct:
			fmt.Fprintf(w, "     you: %s  answer: %s\n", item.YourAnswer, item.CorrectAnswer)
		}
	}
	fmt.Fprintln(w, "[restart] or [logout]")
}
