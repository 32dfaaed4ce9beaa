package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/view"
)

const maxProfileIDLen = 64

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type loginPayload struct {
	Username string `json:"username"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type profilePayload struct {
	ID string `json:"id"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

// validProfileID rejects ids that could escape the profile keyspace.
func validProfileID(id string) bool {
	return id != "" && len(id) <= maxProfileIDLen && !strings.ContainsAny(id, ": /")
}

// Handle upgrades the request and binds the connection to one browser profile.
// Without ?profile= a fresh id is issued and announced to the client.
func (h *WSHandler) Handle(c *gin.Context) {
	profileID := c.Query("profile")
	if profileID == "" {
		profileID = uuid.NewString()
	} else if !validProfileID(profileID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile"})
		return
	}
	h.serve(c.Writer, c.Request, profileID)
}

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, profileID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	// The subscription opens with the current snapshot, which becomes the first view.
	updates, cancel, err := h.service.Connect(ctx, profileID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer h.service.Leave(ctx, profileID)
	defer cancel()

	renderer := &pageRenderer{service: h.service}
	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	enqueue(send, writerDone, outboundMessage{Type: "profile", Payload: profilePayload{ID: profileID}})

	go func() {
		defer close(updatesDone)
		for {
			select {
			case st, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "view", Payload: renderer.render(ctx, st)}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		in, err := decodeIntent(inbound)
		if err != nil {
			if !enqueue(send, writerDone, errorMessage(err.Error())) {
				break
			}
			continue
		}
		if _, err := h.service.Dispatch(ctx, profileID, in); err != nil {
			if !enqueue(send, writerDone, errorMessage(dispatchError(err))) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer. It reports false once the writer has stopped.
func enqueue(send chan<- outboundMessage, writerDone <-chan struct{}, msg outboundMessage) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

var errUnsupportedMessage = errors.New("unsupported message type")

func decodeIntent(msg inboundMessage) (app.Intent, error) {
	switch msg.Type {
	case "login":
		var p loginPayload
		if err := unmarshalPayload(msg.Payload, &p); err != nil {
			return nil, errors.New("invalid login payload")
		}
		return app.Login{Username: p.Username}, nil
	case "start":
		settings := domain.DefaultSettings()
		if err := unmarshalPayload(msg.Payload, &settings); err != nil {
			return nil, errors.New("invalid quiz settings payload")
		}
		return app.StartQuiz{Settings: settings}, nil
	case "answer":
		var p answerPayload
		if err := unmarshalPayload(msg.Payload, &p); err != nil {
			return nil, errors.New("invalid answer payload")
		}
		return app.SubmitAnswer{Answer: p.Answer}, nil
	case "restart":
		return app.Restart{}, nil
	case "logout":
		return app.Logout{}, nil
	case "resume":
		return app.Resume{}, nil
	case "discard":
		return app.DiscardProgress{}, nil
	default:
		return nil, errUnsupportedMessage
	}
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// dispatchError keeps the user-facing alert for fetch failures verbatim.
func dispatchError(err error) string {
	if errors.Is(err, domain.ErrQuestionsUnavailable) {
		return domain.ErrQuestionsUnavailable.Error()
	}
	return err.Error()
}

// pageRenderer fetches the category list once, the first time a setup page is drawn.
type pageRenderer struct {
	service    *app.QuizService
	categories []domain.Category
	loaded     bool
}

func (p *pageRenderer) render(ctx context.Context, st app.State) view.Page {
	if st.Page == domain.PageSetup && !p.loaded {
		fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		categories, err := p.service.Categories(fetchCtx)
		cancel()
		if err != nil {
			log.Printf("load categories: %v", err)
		} else {
			p.categories = categories
			p.loaded = true
		}
	}
	return view.Render(st, p.categories)
}
