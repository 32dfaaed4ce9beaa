package domain

// Page is one of the four screens the quiz flow moves through.
type Page string

const (
	PageLogin   Page = "login"
	PageSetup   Page = "setup"
	PageQuiz    Page = "quiz"
	PageResults Page = "results"
)

const (
	TypeMultiple = "multiple"
	TypeBoolean  = "boolean"
)

// Session pairs a display name with an expiry timestamp (epoch ms).
type Session struct {
	Username  string `json:"username"`
	ExpiresAt int64  `json:"expiresAt"`
}

// QuizSettings drives the provider query and is fixed once a quiz starts.
type QuizSettings struct {
	Amount     int    `json:"amount" validate:"min=1,max=50"`
	Type       string `json:"type" validate:"oneof=multiple boolean"`
	Category   *int   `json:"category,omitempty" validate:"omitempty,min=1"`
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	TimeLimit  int    `json:"timeLimit" validate:"min=1"`
}

// DefaultSettings mirrors the values the setup page starts with.
func DefaultSettings() QuizSettings {
	return QuizSettings{Amount: 10, Type: TypeMultiple, TimeLimit: 300}
}

// Question is a trivia question as returned by the provider. Text fields are HTML-escaped.
type Question struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	AllAnswers       []string `json:"all_answers,omitempty"` // shuffled once at quiz start
}

// UserAnswer records the answer given for a single question.
type UserAnswer struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedAnswer string `json:"selectedAnswer"`
	Correct        bool   `json:"correct"`
}

// QuizProgress is the persisted snapshot of an in-flight quiz.
type QuizProgress struct {
	Username             string       `json:"username"`
	Questions            []Question   `json:"questions"`
	CurrentQuestionIndex int          `json:"currentQuestionIndex"`
	Answers              []UserAnswer `json:"answers"`
	EndTime              int64        `json:"endTime"`
	QuizSettings         QuizSettings `json:"quizSettings"`
	CreatedAt            int64        `json:"createdAt"`
}

// UserStats is the cumulative per-username ledger.
type UserStats struct {
	TotalQuizzes   int     `json:"totalQuizzes"`
	TotalQuestions int     `json:"totalQuestions"`
	TotalCorrect   int     `json:"totalCorrect"`
	TotalWrong     int     `json:"totalWrong"`
	AverageScore   float64 `json:"averageScore"`
	BestScore      int     `json:"bestScore"`
	Streak         int     `json:"streak"`
}

// QuizResult summarizes a finished quiz. WrongAnswers counts answered-but-incorrect
// questions only; StatsWrong adds the unanswered ones.
type QuizResult struct {
	TotalQuestions    int `json:"totalQuestions"`
	AnsweredQuestions int `json:"answeredQuestions"`
	CorrectAnswers    int `json:"correctAnswers"`
	WrongAnswers      int `json:"wrongAnswers"`
	Unanswered        int `json:"unanswered"`
	ScorePercentage   int `json:"scorePercentage"`
	TimeSpent         int `json:"timeSpent"`
}

// StatsWrong is the wrong count recorded in UserStats: unanswered questions count as wrong.
func (r QuizResult) StatsWrong() int {
	return r.WrongAnswers + r.Unanswered
}

// Category is a provider category.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
