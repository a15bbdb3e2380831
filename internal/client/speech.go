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

// SpeechClient is an HTTP client for the text-to-speech service.
type SpeechClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSpeechClient(baseURL string, timeout time.Duration) *SpeechClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &SpeechClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ pipeline.SpeechSynthesizer = (*SpeechClient)(nil)

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type ttsResponse struct {
	URL        string  `json:"url"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sampleRate"`
	Format     string  `json:"format"`
}

func (c *SpeechClient) GenerateTTS(ctx context.Context, text, language string) (*pipeline.SpeechResult, error) {
	payload, err := json.Marshal(ttsRequest{Text: text, Language: language})
	if err != nil {
		return nil, errors.Wrap(err, "encoding tts request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "building tts request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling speech synthesizer")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("speech synthesizer returned status %d", resp.StatusCode)
	}

	var out ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decoding tts response")
	}

	return &pipeline.SpeechResult{
		URL:        out.URL,
		Duration:   out.Duration,
		SampleRate: out.SampleRate,
		Format:     out.Format,
	}, nil
}
