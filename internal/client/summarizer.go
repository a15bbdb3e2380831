package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/newsreel/newsreel/internal/pipeline"
	"github.com/pkg/errors"
)

// SummarizerClient is an HTTP client for the summarization service.
type SummarizerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSummarizerClient(baseURL string, timeout time.Duration) *SummarizerClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &SummarizerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ pipeline.Summarizer = (*SummarizerClient)(nil)

type summarizeRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	TargetSeconds int    `json:"targetSeconds"`
}

type summarizeResponse struct {
	Text      string `json:"text"`
	WordCount int    `json:"wordCount"`
	TooShort  bool   `json:"tooShort"`
	Truncated bool   `json:"truncated"`
}

func (c *SummarizerClient) GenerateSummary(ctx context.Context, title, body string, targetSeconds int) (*pipeline.SummaryResult, error) {
	payload, err := json.Marshal(summarizeRequest{Title: title, Content: body, TargetSeconds: targetSeconds})
	if err != nil {
		return nil, errors.Wrap(err, "encoding summarize request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/summarize", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "building summarize request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling summarizer")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("summarizer returned status %d", resp.StatusCode)
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decoding summarize response")
	}

	return &pipeline.SummaryResult{
		Text:      out.Text,
		WordCount: out.WordCount,
		TooShort:  out.TooShort,
		Truncated: out.Truncated,
	}, nil
}
