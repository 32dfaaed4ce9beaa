// Package view turns machine state into the view models the pages display.
// Every function here is pure: the same state always renders the same page.
package view

import (
	"fmt"
	"math"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/quizutil"
)

// Page is the rendered screen. Exactly one of the page sections is set.
type Page struct {
	Page     domain.Page   `json:"page"`
	Login    *LoginView    `json:"login,omitempty"`
	Setup    *SetupView    `json:"setup,omitempty"`
	Question *QuestionView `json:"question,omitempty"`
	Results  *ResultsView  `json:"results,omitempty"`
	Resume   *ResumePrompt `json:"resume,omitempty"`
}

type LoginView struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

type SetupView struct {
	Username   string              `json:"username"`
	Greeting   string              `json:"greeting"`
	Defaults   domain.QuizSettings `json:"defaults"`
	Categories []domain.Category   `json:"categories"`
	Stats      *StatsView          `json:"stats,omitempty"`
	FirstQuiz  string              `json:"firstQuiz,omitempty"`
}

type StatsView struct {
	TotalQuizzes     int    `json:"totalQuizzes"`
	TotalQuestions   int    `json:"totalQuestions"`
	TotalCorrect     int    `json:"totalCorrect"`
	TotalWrong       int    `json:"totalWrong"`
	AverageScore     string `json:"averageScore"`
	BestScore        string `json:"bestScore"`
	PerformanceLevel string `json:"performanceLevel"`
}

type AnswerOption struct {
	Label string `json:"label"`
	Value string `json:"value"` // raw answer, sent back verbatim when chosen
	Text  string `json:"text"`
}

type QuestionView struct {
	Number     int            `json:"number"`
	Total      int            `json:"total"`
	Heading    string         `json:"heading"`
	Progress   float64        `json:"progress"`
	Category   string         `json:"category"`
	Difficulty string         `json:"difficulty"`
	Text       string         `json:"text"`
	Answers    []AnswerOption `json:"answers"`
	TimeLeft   string         `json:"timeLeft"`
}

type ReviewItem struct {
	Number        int    `json:"number"`
	Question      string `json:"question"`
	Answered      bool   `json:"answered"`
	Correct       bool   `json:"correct"`
	YourAnswer    string `json:"yourAnswer,omitempty"`
	CorrectAnswer string `json:"correctAnswer"`
	Note          string `json:"note,omitempty"`
}

type ResultsView struct {
	Username        string       `json:"username"`
	Headline        string       `json:"headline"`
	TotalQuestions  int          `json:"totalQuestions"`
	CorrectAnswers  int          `json:"correctAnswers"`
	WrongAnswers    int          `json:"wrongAnswers"`
	Unanswered      int          `json:"unanswered"`
	ScorePercentage int          `json:"scorePercentage"`
	TimeSpent       string       `json:"timeSpent"`
	Feedback        string       `json:"feedback"`
	Review          []ReviewItem `json:"review"`
}

type ResumePrompt struct {
	Message string `json:"message"`
}

// Render builds the page for st. Categories only affect the setup page.
func Render(st app.State, categories []domain.Category) Page {
	p := Page{Page: st.Page}
	switch st.Page {
	case domain.PageLogin:
		p.Login = &LoginView{
			Title:  "Quiz App - Test Your Knowledge",
			Prompt: "Enter a username to begin",
		}
	case domain.PageSetup:
		p.Setup = renderSetup(st, categories)
		if st.ResumePrompt {
			p.Resume = &ResumePrompt{
				Message: "You have an unfinished quiz. Would you like to continue or start a new one?",
			}
		}
	case domain.PageQuiz:
		p.Question = renderQuestion(st)
	case domain.PageResults:
		p.Results = renderResults(st)
	}
	return p
}

func renderSetup(st app.State, categories []domain.Category) *SetupView {
	v := &SetupView{
		Username:   st.Username,
		Greeting:   fmt.Sprintf("Welcome, %s!", st.Username),
		Defaults:   domain.DefaultSettings(),
		Categories: categories,
	}
	if st.Stats.TotalQuizzes > 0 {
		v.Stats = renderStats(st.Stats)
	} else {
		v.FirstQuiz = "Ready for your first quiz?"
	}
	return v
}

func renderStats(s domain.UserStats) *StatsView {
	return &StatsView{
		TotalQuizzes:     s.TotalQuizzes,
		TotalQuestions:   s.TotalQuestions,
		TotalCorrect:     s.TotalCorrect,
		TotalWrong:       s.TotalWrong,
		AverageScore:     fmt.Sprintf("%.1f%%", s.AverageScore),
		BestScore:        fmt.Sprintf("%d%%", s.BestScore),
		PerformanceLevel: PerformanceLevel(s.AverageScore),
	}
}

// PerformanceLevel ranks an average score.
func PerformanceLevel(avg float64) string {
	switch {
	case avg >= 90:
		return "Master"
	case avg >= 80:
		return "Expert"
	case avg >= 70:
		return "Advanced"
	case avg >= 60:
		return "Intermediate"
	default:
		return "Beginner"
	}
}

func renderQuestion(st app.State) *QuestionView {
	q, ok := st.CurrentQuestion()
	if !ok {
		return nil
	}
	number := st.CurrentIndex + 1
	total := len(st.Questions)

	answers := q.AllAnswers
	if len(answers) == 0 {
		answers = append([]string{q.CorrectAnswer}, q.IncorrectAnswers...)
	}
	options := make([]AnswerOption, len(answers))
	for i, a := range answers {
		options[i] = AnswerOption{
			Label: string(rune('A' + i)),
			Value: a,
			Text:  quizutil.DecodeEntities(a),
		}
	}

	return &QuestionView{
		Number:     number,
		Total:      total,
		Heading:    fmt.Sprintf("Question %d of %d", number, total),
		Progress:   math.Round(float64(number)/float64(total)*1000) / 10,
		Category:   quizutil.DecodeEntities(q.Category),
		Difficulty: q.Difficulty,
		Text:       quizutil.DecodeEntities(q.Question),
		Answers:    options,
		TimeLeft:   quizutil.FormatDuration(st.TimeLeft),
	}
}

func renderResults(st app.State) *ResultsView {
	v := &ResultsView{
		Username: st.Username,
		Headline: fmt.Sprintf("Awesome work, %s! You have conquered this challenge.", st.Username),
	}
	if st.Result != nil {
		r := st.Result
		v.TotalQuestions = r.TotalQuestions
		v.CorrectAnswers = r.CorrectAnswers
		v.WrongAnswers = r.WrongAnswers
		v.Unanswered = r.Unanswered
		v.ScorePercentage = r.ScorePercentage
		v.TimeSpent = quizutil.FormatDuration(r.TimeSpent)
	}
	v.Feedback = Feedback(v.ScorePercentage)

	byIndex := make(map[int]domain.UserAnswer, len(st.Answers))
	for _, a := range st.Answers {
		byIndex[a.QuestionIndex] = a
	}
	v.Review = make([]ReviewItem, len(st.Questions))
	for i, q := range st.Questions {
		item := ReviewItem{
			Number:        i + 1,
			Question:      quizutil.DecodeEntities(q.Question),
			CorrectAnswer: quizutil.DecodeEntities(q.CorrectAnswer),
		}
		if a, ok := byIndex[i]; ok {
			item.Answered = true
			item.Correct = a.Correct
			item.YourAnswer = quizutil.DecodeEntities(a.SelectedAnswer)
		} else {
			item.Note = "Not answered - Time ran out"
		}
		v.Review[i] = item
	}
	return v
}

// Feedback is the closing remark for a score.
func Feedback(score int) string {
	switch {
	case score >= 80:
		return "Excellent performance! You're a quiz master!"
	case score >= 60:
		return "Good job! Keep practicing to improve!"
	default:
		return "Don't give up! Every attempt makes you stronger!"
	}
}
