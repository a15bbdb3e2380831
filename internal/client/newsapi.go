package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/newsreel/newsreel/internal/pipeline"
	"github.com/pkg/errors"
)

// NewsClient is an HTTP client for a NewsAPI-compatible article source.
type NewsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewNewsClient(baseURL, apiKey string, timeout time.Duration) *NewsClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &NewsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ pipeline.ArticleSource = (*NewsClient)(nil)

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Message  string           `json:"message,omitempty"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	URL         string     `json:"url"`
	URLToImage  string     `json:"urlToImage"`
	PublishedAt *time.Time `json:"publishedAt"`
}

func (c *NewsClient) FetchArticles(ctx context.Context, topic, language string) ([]pipeline.ArticleCandidate, error) {
	q := url.Values{}
	q.Set("q", topic)
	q.Set("language", language)
	q.Set("sortBy", "publishedAt")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/everything?%s", c.baseURL, q.Encode()), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building news request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling news service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("news service returned status %d", resp.StatusCode)
	}

	var body newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decoding news response")
	}
	if body.Status != "ok" {
		return nil, errors.Errorf("news service returned status %q: %s", body.Status, body.Message)
	}

	candidates := make([]pipeline.ArticleCandidate, 0, len(body.Articles))
	for _, a := range body.Articles {
		text := a.Content
		if text == "" {
			text = a.Description
		}
		if a.Title == "" || text == "" {
			continue
		}
		candidates = append(candidates, pipeline.ArticleCandidate{
			Title:       a.Title,
			Body:        text,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
		})
	}
	return candidates, nil
}
