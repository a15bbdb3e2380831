package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/newsreel/newsreel/internal/pipeline"
	"github.com/newsreel/newsreel/internal/store/model"
	"github.com/pkg/errors"
)

// PublisherClient is an HTTP client for the video publishing service.
// Token lifecycle and platform OAuth live behind the service; this client
// only hands over the finished video.
type PublisherClient struct {
	baseURL    string
	platform   string
	httpClient *http.Client
}

func NewPublisherClient(baseURL, platform string, timeout time.Duration) *PublisherClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if platform == "" {
		platform = "youtube"
	}
	return &PublisherClient{
		baseURL:  baseURL,
		platform: platform,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ pipeline.Publisher = (*PublisherClient)(nil)

type publishRequest struct {
	JobID    string `json:"jobId"`
	Topic    string `json:"topic"`
	Language string `json:"language"`
	VideoURL string `json:"videoUrl"`
	Platform string `json:"platform"`
}

type publishResponse struct {
	PlatformVideoID string     `json:"platformVideoId"`
	Status          string     `json:"status"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
}

func (c *PublisherClient) Platform() string {
	return c.platform
}

func (c *PublisherClient) PublishVideo(ctx context.Context, job *model.Job, video *model.VideoAsset) (*pipeline.PublishResult, error) {
	payload, err := json.Marshal(publishRequest{
		JobID:    job.ID.String(),
		Topic:    job.Topic,
		Language: job.Language,
		VideoURL: video.URL,
		Platform: c.platform,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encoding publish request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/publish", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "building publish request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling publisher")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.Errorf("publisher returned status %d", resp.StatusCode)
	}

	var out publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decoding publish response")
	}

	return &pipeline.PublishResult{
		PlatformVideoID: out.PlatformVideoID,
		Status:          out.Status,
		PublishedAt:     out.PublishedAt,
	}, nil
}
