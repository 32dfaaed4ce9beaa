package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/view"
)

var errUnknownCommand = errors.New("unknown command")

// NewPlayCmd runs a quiz against the configured backends from the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var profileID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL != "" {
				if err := runMigrationsWithConfig(ctx, cfg); err != nil {
					return err
				}
			}
			service, cleanup, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return runPlay(ctx, service, profileID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "terminal", "profile holding the session, progress and stats")
	return cmd
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func runPlay(ctx context.Context, service *app.QuizService, profileID string, in io.Reader, out io.Writer) error {
	updates, cancel, err := service.Connect(ctx, profileID)
	if err != nil {
		return err
	}
	defer service.Leave(ctx, profileID)

	w := &lockedWriter{w: out}
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		printUpdates(ctx, service, w, updates)
	}()
	defer func() {
		cancel()
		<-printerDone
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "quit" || line == "exit" {
				return nil
			}
			st, err := service.Snapshot(profileID)
			if err != nil {
				return err
			}
			intent, err := parseCommand(st, line)
			if err != nil {
				fmt.Fprintln(w, err)
				continue
			}
			if _, err := service.Dispatch(ctx, profileID, intent); err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
			}
		}
	}
}

// printUpdates redraws the page whenever the screen changes and calls out the
// remaining time at a few checkpoints in between.
func printUpdates(ctx context.Context, service *app.QuizService, w io.Writer, updates <-chan app.State) {
	var (
		categories []domain.Category
		loaded     bool
		last       string
	)
	for st := range updates {
		key := fmt.Sprintf("%s/%s/%d/%t", st.Page, st.Username, st.CurrentIndex, st.ResumePrompt)
		if key == last {
			if st.Page == domain.PageQuiz && timerCheckpoint(st.TimeLeft) {
				fmt.Fprintf(w, "time left %s\n", view.Render(st, nil).Question.TimeLeft)
			}
			continue
		}
		last = key
		if st.Page == domain.PageSetup && !loaded {
			var err error
			if categories, err = service.Categories(ctx); err != nil {
				log.Printf("load categories: %v", err)
			} else {
				loaded = true
			}
		}
		renderText(w, view.Render(st, categories))
	}
}

func timerCheckpoint(left int) bool {
	return left == 60 || left == 30 || (left > 0 && left <= 5)
}

// parseCommand maps a line of input to an intent for the page on screen.
func parseCommand(st app.State, line string) (app.Intent, error) {
	fields := strings.Fields(line)
	switch st.Page {
	case domain.PageLogin:
		return app.Login{Username: line}, nil
	case domain.PageSetup:
		if len(fields) == 0 {
			return nil, errUnknownCommand
		}
		if st.ResumePrompt {
			switch fields[0] {
			case "resume":
				return app.Resume{}, nil
			case "new":
				return app.DiscardProgress{}, nil
			}
			return nil, fmt.Errorf("%w: type resume or new", errUnknownCommand)
		}
		switch fields[0] {
		case "start":
			settings, err := parseStartFlags(fields[1:])
			if err != nil {
				return nil, err
			}
			return app.StartQuiz{Settings: settings}, nil
		case "logout":
			return app.Logout{}, nil
		}
	case domain.PageQuiz:
		q := view.Render(st, nil).Question
		if q != nil && len(q.Answers) > 0 {
			for _, a := range q.Answers {
				if strings.EqualFold(a.Label, line) {
					return app.SubmitAnswer{Answer: a.Value}, nil
				}
			}
			return nil, fmt.Errorf("%w: answer with a letter from A to %s", errUnknownCommand, q.Answers[len(q.Answers)-1].Label)
		}
	case domain.PageResults:
		switch line {
		case "restart":
			return app.Restart{}, nil
		case "logout":
			return app.Logout{}, nil
		}
	}
	return nil, errUnknownCommand
}

func parseStartFlags(args []string) (domain.QuizSettings, error) {
	settings := domain.DefaultSettings()
	var category int

	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&settings.Amount, "amount", settings.Amount, "number of questions")
	fs.StringVar(&settings.Type, "type", settings.Type, "multiple or boolean")
	fs.StringVar(&settings.Difficulty, "difficulty", "", "easy, medium or hard")
	fs.IntVar(&category, "category", 0, "category id")
	fs.IntVar(&settings.TimeLimit, "time-limit", settings.TimeLimit, "seconds for the whole quiz")
	if err := fs.Parse(args); err != nil {
		return settings, err
	}
	if category > 0 {
		settings.Category = &category
	}
	return settings, nil
}
