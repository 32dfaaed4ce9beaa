package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/quizutil"
)

// QuestionProvider fetches a question set for the given settings.
type QuestionProvider interface {
	Questions(ctx context.Context, settings domain.QuizSettings) ([]domain.Question, error)
}

// Intent is a user action dispatched to the Machine. Resume and DiscardProgress
// answer the resume prompt shown on setup.
type Intent interface {
	intent()
}

type (
	Login           struct{ Username string }
	StartQuiz       struct{ Settings domain.QuizSettings }
	SubmitAnswer    struct{ Answer string }
	Restart         struct{}
	Logout          struct{}
	Resume          struct{}
	DiscardProgress struct{}
)

func (Login) intent()           {}
func (StartQuiz) intent()       {}
func (SubmitAnswer) intent()    {}
func (Restart) intent()         {}
func (Logout) intent()          {}
func (Resume) intent()          {}
func (DiscardProgress) intent() {}

// State is a snapshot of the machine. Slices are copies and safe to keep.
type State struct {
	Page         domain.Page
	Username     string
	Settings     domain.QuizSettings
	Questions    []domain.Question
	CurrentIndex int
	Answers      []domain.UserAnswer
	TimeLeft     int
	ResumePrompt bool
	Result       *domain.QuizResult
	Stats        domain.UserStats
}

// CurrentQuestion returns the question on screen, if any.
func (s State) CurrentQuestion() (domain.Question, bool) {
	if s.Page != domain.PageQuiz || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// Ticker returns a channel receiving one value per countdown step and a stop function.
type Ticker func() (<-chan time.Time, func())

func secondTicker() (<-chan time.Time, func()) {
	t := time.NewTicker(time.Second)
	return t.C, t.Stop
}

type Option func(*Machine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithRand fixes the source used to order answers.
func WithRand(rnd *rand.Rand) Option {
	return func(m *Machine) { m.rnd = rnd }
}

// WithTicker replaces the one-second countdown ticker.
func WithTicker(t Ticker) Option {
	return func(m *Machine) { m.newTicker = t }
}

// Machine drives one browser profile through login, setup, quiz and results.
type Machine struct {
	store     *Store
	questions QuestionProvider
	now       func() time.Time
	rnd       *rand.Rand
	newTicker Ticker

	mu          sync.Mutex
	state       State
	createdAt   int64
	concluded   bool
	timerGen    int
	stopTimer   func()
	closed      bool
	subscribers map[chan State]struct{}
}

func NewMachine(store *Store, questions QuestionProvider, opts ...Option) *Machine {
	m := &Machine{
		store:       store,
		questions:   questions,
		now:         time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		newTicker:   secondTicker,
		state:       State{Page: domain.PageLogin, Settings: domain.DefaultSettings()},
		concluded:   true,
		subscribers: make(map[chan State]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init restores a live session: with one the machine starts on setup, otherwise on login.
func (m *Machine) Init(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.LoadSession(ctx)
	if err != nil {
		return m.snapshotLocked(), err
	}
	if session != nil {
		m.state.Username = session.Username
		m.enterSetupLocked(ctx)
	}
	return m.broadcastLocked(), nil
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Dispatch applies an intent and returns the resulting state. On error the state is unchanged.
func (m *Machine) Dispatch(ctx context.Context, in Intent) (State, error) {
	switch in := in.(type) {
	case Login:
		return m.login(ctx, in.Username)
	case StartQuiz:
		return m.startQuiz(ctx, in.Settings)
	case SubmitAnswer:
		return m.submitAnswer(ctx, in.Answer)
	case Restart:
		return m.restart(ctx)
	case Logout:
		return m.logout(ctx)
	case Resume:
		return m.resume(ctx)
	case DiscardProgress:
		return m.discard(ctx)
	default:
		return m.State(), fmt.Errorf("unsupported intent %T", in)
	}
}

func (m *Machine) login(ctx context.Context, username string) (State, error) {
	name := strings.TrimSpace(username)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.expectLocked(domain.PageLogin); err != nil {
		return m.snapshotLocked(), err
	}
	if name == "" {
		return m.snapshotLocked(), nil
	}
	if _, err := m.store.SaveSession(ctx, name); err != nil {
		return m.snapshotLocked(), err
	}

	m.state.Username = name
	m.enterSetupLocked(ctx)
	return m.broadcastLocked(), nil
}

func (m *Machine) startQuiz(ctx context.Context, settings domain.QuizSettings) (State, error) {
	if err := ValidateSettings(settings); err != nil {
		return m.State(), err
	}

	m.mu.Lock()
	err := m.expectLocked(domain.PageSetup)
	username := m.state.Username
	before := m.snapshotLocked()
	m.mu.Unlock()
	if err != nil {
		return before, err
	}

	// The fetch runs unlocked so ticks and other intents are not blocked on the network.
	questions, err := m.questions.Questions(ctx, settings)
	if err != nil {
		log.Printf("fetch questions for %q: %v", username, err)
		return m.State(), fmt.Errorf("%w: %v", domain.ErrQuestionsUnavailable, err)
	}
	if len(questions) == 0 {
		return m.State(), domain.ErrQuestionsUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Drop the response if the user moved on while it was in flight.
	if m.closed || m.state.Page != domain.PageSetup || m.state.Username != username {
		return m.snapshotLocked(), domain.ErrInvalidTransition
	}

	prepared := make([]domain.Question, len(questions))
	for i, q := range questions {
		q.AllAnswers = quizutil.AnswerOrder(q.CorrectAnswer, q.IncorrectAnswers, m.rnd)
		prepared[i] = q
	}

	now := m.now()
	progress := domain.QuizProgress{
		Username:             username,
		Questions:            prepared,
		CurrentQuestionIndex: 0,
		Answers:              []domain.UserAnswer{},
		EndTime:              now.Add(time.Duration(settings.TimeLimit) * time.Second).UnixMilli(),
		QuizSettings:         settings,
		CreatedAt:            now.UnixMilli(),
	}
	if err := m.store.SaveProgress(ctx, progress); err != nil {
		return m.snapshotLocked(), err
	}

	m.state = State{
		Page:      domain.PageQuiz,
		Username:  username,
		Settings:  settings,
		Questions: prepared,
		Answers:   []domain.UserAnswer{},
		TimeLeft:  settings.TimeLimit,
		Stats:     m.state.Stats,
	}
	m.createdAt = progress.CreatedAt
	m.concluded = false
	m.startTimerLocked()
	return m.broadcastLocked(), nil
}

func (m *Machine) submitAnswer(ctx context.Context, answer string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.expectLocked(domain.PageQuiz); err != nil {
		return m.snapshotLocked(), err
	}
	idx := m.state.CurrentIndex
	if m.concluded || idx >= len(m.state.Questions) {
		return m.snapshotLocked(), domain.ErrInvalidTransition
	}

	question := m.state.Questions[idx]
	answers := make([]domain.UserAnswer, len(m.state.Answers), len(m.state.Answers)+1)
	copy(answers, m.state.Answers)
	answers = append(answers, domain.UserAnswer{
		QuestionIndex:  idx,
		SelectedAnswer: answer,
		Correct:        answer == question.CorrectAnswer,
	})

	progress := domain.QuizProgress{
		Username:             m.state.Username,
		Questions:            m.state.Questions,
		CurrentQuestionIndex: idx + 1,
		Answers:              answers,
		EndTime:              m.now().Add(time.Duration(m.state.TimeLeft) * time.Second).UnixMilli(),
		QuizSettings:         m.state.Settings,
		CreatedAt:            m.createdAt,
	}
	if err := m.store.SaveProgress(ctx, progress); err != nil {
		log.Printf("save progress for %q: %v", m.state.Username, err)
	}

	m.state.Answers = answers
	m.state.CurrentIndex = idx + 1
	if m.state.CurrentIndex >= len(m.state.Questions) {
		m.finishLocked(ctx, answers)
	}
	return m.broadcastLocked(), nil
}

func (m *Machine) restart(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.expectLocked(domain.PageResults); err != nil {
		return m.snapshotLocked(), err
	}
	if err := m.store.ClearProgress(ctx); err != nil {
		return m.snapshotLocked(), err
	}

	m.stopTimerLocked()
	m.state = State{
		Username: m.state.Username,
		Settings: m.state.Settings,
		Stats:    m.state.Stats,
	}
	m.enterSetupLocked(ctx)
	return m.broadcastLocked(), nil
}

func (m *Machine) logout(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.expectLocked(domain.PageSetup, domain.PageResults); err != nil {
		return m.snapshotLocked(), err
	}
	if err := m.store.ClearSession(ctx); err != nil {
		return m.snapshotLocked(), err
	}
	if err := m.store.ClearProgress(ctx); err != nil {
		return m.snapshotLocked(), err
	}

	m.stopTimerLocked()
	m.concluded = true
	m.state = State{Page: domain.PageLogin, Settings: domain.DefaultSettings()}
	return m.broadcastLocked(), nil
}

func (m *Machine) resume(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.expectLocked(domain.PageSetup); err != nil {
		return m.snapshotLocked(), err
	}

	progress, err := m.store.LoadProgress(ctx)
	if err != nil {
		return m.snapshotLocked(), err
	}
	m.state.ResumePrompt = false
	if progress == nil {
		return m.broadcastLocked(), nil
	}

	remaining := (progress.EndTime - m.now().UnixMilli()) / 1000
	if remaining < 0 {
		remaining = 0
	}

	m.state = State{
		Page:         domain.PageQuiz,
		Username:     progress.Username,
		Settings:     progress.QuizSettings,
		Questions:    progress.Questions,
		CurrentIndex: progress.CurrentQuestionIndex,
		Answers:      progress.Answers,
		TimeLeft:     int(remaining),
		Stats:        m.state.Stats,
	}
	if m.state.Answers == nil {
		m.state.Answers = []domain.UserAnswer{}
	}
	m.createdAt = progress.CreatedAt
	m.concluded = false

	if remaining > 0 && progress.CurrentQuestionIndex < len(progress.Questions) {
		m.startTimerLocked()
	} else {
		m.finishLocked(ctx, m.state.Answers)
	}
	return m.broadcastLocked(), nil
}

func (m *Machine) discard(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.expectLocked(domain.PageSetup); err != nil {
		return m.snapshotLocked(), err
	}
	if err := m.store.ClearProgress(ctx); err != nil {
		return m.snapshotLocked(), err
	}
	m.state.ResumePrompt = false
	return m.broadcastLocked(), nil
}

// Finish ends the running quiz with the answers collected so far. Calling it
// after the quiz has concluded does nothing.
func (m *Machine) Finish(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Page != domain.PageQuiz || m.concluded {
		return m.snapshotLocked()
	}
	m.finishLocked(ctx, m.state.Answers)
	return m.broadcastLocked()
}

// finishLocked scores the quiz, records statistics and moves to results exactly once per quiz.
func (m *Machine) finishLocked(ctx context.Context, answers []domain.UserAnswer) {
	if m.concluded {
		return
	}
	m.concluded = true
	m.stopTimerLocked()

	result := scoreQuiz(m.state.Questions, answers, m.state.Settings.TimeLimit-m.state.TimeLeft)
	stats, err := m.store.RecordQuizResult(ctx, m.state.Username, result)
	if err != nil {
		log.Printf("record quiz result for %q: %v", m.state.Username, err)
	}
	if err := m.store.ClearProgress(ctx); err != nil {
		log.Printf("clear progress for %q: %v", m.state.Username, err)
	}

	m.state.Page = domain.PageResults
	m.state.Answers = answers
	m.state.Result = &result
	m.state.Stats = stats
	m.state.ResumePrompt = false
}

func scoreQuiz(questions []domain.Question, answers []domain.UserAnswer, timeSpent int) domain.QuizResult {
	correct := 0
	for _, a := range answers {
		if a.Correct {
			correct++
		}
	}
	total := len(questions)
	if timeSpent < 0 {
		timeSpent = 0
	}
	return domain.QuizResult{
		TotalQuestions:    total,
		AnsweredQuestions: len(answers),
		CorrectAnswers:    correct,
		WrongAnswers:      len(answers) - correct,
		Unanswered:        total - len(answers),
		ScorePercentage:   quizutil.ScorePercentage(correct, total),
		TimeSpent:         timeSpent,
	}
}

func (m *Machine) enterSetupLocked(ctx context.Context) {
	m.state.Page = domain.PageSetup

	hasProgress, err := m.store.HasProgress(ctx)
	if err != nil {
		log.Printf("load progress: %v", err)
	}
	m.state.ResumePrompt = hasProgress

	stats, err := m.store.LoadStats(ctx, m.state.Username)
	if err != nil {
		log.Printf("load stats for %q: %v", m.state.Username, err)
	}
	m.state.Stats = stats
}

func (m *Machine) expectLocked(pages ...domain.Page) error {
	if m.closed {
		return domain.ErrMachineClosed
	}
	for _, p := range pages {
		if m.state.Page == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidTransition, m.state.Page)
}

func (m *Machine) startTimerLocked() {
	m.stopTimerLocked()
	m.timerGen++
	gen := m.timerGen

	ticks, stop := m.newTicker()
	done := make(chan struct{})
	m.stopTimer = func() {
		close(done)
		stop()
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticks:
				m.tick(gen)
			}
		}
	}()
}

func (m *Machine) stopTimerLocked() {
	if m.stopTimer != nil {
		m.stopTimer()
		m.stopTimer = nil
	}
	m.timerGen++
}

// tick advances the countdown. Ticks from a superseded timer are ignored.
func (m *Machine) tick(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.timerGen || m.state.Page != domain.PageQuiz || m.concluded {
		return
	}
	if m.state.TimeLeft <= 1 {
		m.state.TimeLeft = 0
		m.finishLocked(context.Background(), m.state.Answers)
	} else {
		m.state.TimeLeft--
	}
	m.broadcastLocked()
}

// Subscribe returns a channel that receives a snapshot after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (m *Machine) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	m.subscribers[ch] = struct{}{}
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports how many observers are attached.
func (m *Machine) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Close stops the countdown and detaches all observers. Persisted progress is kept,
// so a new machine for the same profile can offer to resume.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.stopTimerLocked()
	for ch := range m.subscribers {
		delete(m.subscribers, ch)
		close(ch)
	}
}

func (m *Machine) broadcastLocked() State {
	st := m.snapshotLocked()
	for ch := range m.subscribers {
		select {
		case ch <- st:
		default:
			// Slow observer: drop its oldest snapshot so it always ends on the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
	return st
}

func (m *Machine) snapshotLocked() State {
	st := m.state
	st.Questions = append([]domain.Question(nil), m.state.Questions...)
	st.Answers = append([]domain.UserAnswer(nil), m.state.Answers...)
	if m.state.Result != nil {
		r := *m.state.Result
		st.Result = &r
	}
	return st
}
