// Package opentdb talks to the Open Trivia DB HTTP API.
package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trivia-quiz/internal/domain"
)

const DefaultBaseURL = "https://opentdb.com"

var responseCodes = map[int]string{
	1: "no results",
	2: "invalid parameter",
	3: "token not found",
	4: "token empty",
	5: "rate limit",
}

// Client fetches categories and question sets.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type categoriesResponse struct {
	TriviaCategories []domain.Category `json:"trivia_categories"`
}

type questionsResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []domain.Question `json:"results"`
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var body categoriesResponse
	if err := c.getJSON(ctx, "/api_category.php", nil, &body); err != nil {
		return nil, err
	}
	return body.TriviaCategories, nil
}

// Questions fetches a question set. A non-zero response code or an empty result set is an error.
func (c *Client) Questions(ctx context.Context, settings domain.QuizSettings) ([]domain.Question, error) {
	var body questionsResponse
	if err := c.getJSON(ctx, "/api.php", QuestionsQuery(settings), &body); err != nil {
		return nil, err
	}
	if body.ResponseCode != 0 {
		reason := responseCodes[body.ResponseCode]
		if reason == "" {
			reason = "unknown"
		}
		return nil, fmt.Errorf("opentdb response code %d (%s)", body.ResponseCode, reason)
	}
	if len(body.Results) == 0 {
		return nil, domain.ErrQuestionsUnavailable
	}
	return body.Results, nil
}

// QuestionsQuery builds the api.php query for settings; difficulty and category are optional.
func QuestionsQuery(settings domain.QuizSettings) url.Values {
	q := url.Values{}
	q.Set("amount", strconv.Itoa(settings.Amount))
	q.Set("type", settings.Type)
	if settings.Difficulty != "" {
		q.Set("difficulty", settings.Difficulty)
	}
	if settings.Category != nil {
		q.Set("category", strconv.Itoa(*settings.Category))
	}
	return q
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
