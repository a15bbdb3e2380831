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

// RendererClient is an HTTP client for the video rendering service.
type RendererClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRendererClient(baseURL string, timeout time.Duration) *RendererClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &RendererClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ pipeline.VideoRenderer = (*RendererClient)(nil)

type renderRequest struct {
	Title       string   `json:"title"`
	SummaryText string   `json:"summaryText"`
	AudioURL    string   `json:"audioUrl"`
	Duration    float64  `json:"duration"`
	Images      []string `json:"images"`
}

type renderResponse struct {
	VideoURL     string  `json:"videoUrl"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	SubtitleURL  *string `json:"subtitleUrl,omitempty"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Duration     float64 `json:"duration"`
}

func (c *RendererClient) Render(ctx context.Context, r pipeline.RenderRequest) (*pipeline.RenderResult, error) {
	payload, err := json.Marshal(renderRequest{
		Title:       r.Title,
		SummaryText: r.SummaryText,
		AudioURL:    r.AudioURL,
		Duration:    r.Duration,
		Images:      r.Images,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding render request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/render", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "building render request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling video renderer")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("video renderer returned status %d", resp.StatusCode)
	}

	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decoding render response")
	}

	return &pipeline.RenderResult{
		VideoURL:     out.VideoURL,
		ThumbnailURL: out.ThumbnailURL,
		SubtitleURL:  out.SubtitleURL,
		Width:        out.Width,
		Height:       out.Height,
		Duration:     out.Duration,
	}, nil
}
