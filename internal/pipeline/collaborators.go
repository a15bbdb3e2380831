package pipeline

import (
	"context"
	"time"

	"github.com/newsreel/newsreel/internal/store/model"
)

// The five collaborators are independent network services. Each one is a
// black box behind an interface; concrete HTTP clients live in
// internal/client.

type ArticleCandidate struct {
	Title       string
	Body        string
	URL         string
	ImageURL    string
	PublishedAt *time.Time
}

type ArticleSource interface {
	FetchArticles(ctx context.Context, topic, language string) ([]ArticleCandidate, error)
}

type SummaryResult struct {
	Text      string
	WordCount int
	TooShort  bool
	Truncated bool
}

type Summarizer interface {
	GenerateSummary(ctx context.Context, title, body string, targetSeconds int) (*SummaryResult, error)
}

type SpeechResult struct {
	URL        string
	Duration   float64
	SampleRate int
	Format     string
}

type SpeechSynthesizer interface {
	GenerateTTS(ctx context.Context, text, language string) (*SpeechResult, error)
}

type RenderRequest struct {
	Title       string
	SummaryText string
	AudioURL    string
	Duration    float64
	Images      []string
}

type RenderResult struct {
	VideoURL     string
	ThumbnailURL string
	SubtitleURL  *string
	Width        int
	Height       int
	Duration     float64
}

type VideoRenderer interface {
	Render(ctx context.Context, req RenderRequest) (*RenderResult, error)
}

type PublishResult struct {
	PlatformVideoID string
	Status          string
	PublishedAt     *time.Time
}

type Publisher interface {
	PublishVideo(ctx context.Context, job *model.Job, video *model.VideoAsset) (*PublishResult, error)
	Platform() string
}

// Collaborators bundles the five services the executor drives.
type Collaborators struct {
	Articles   ArticleSource
	Summarizer Summarizer
	Speech     SpeechSynthesizer
	Renderer   VideoRenderer
	Publisher  Publisher
}
