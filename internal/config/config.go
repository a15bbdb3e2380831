package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database   *dbConfig
	Service    *svcConfig
	Automation *automationConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"newsreel"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"NEWSREEL_ADDRESS" default:":3443"`
	MetricsAddress string `envconfig:"NEWSREEL_METRICS_ADDRESS" default:":8080"`
	BaseUrl        string `envconfig:"NEWSREEL_BASE_URL" default:"https://localhost:3443"`
	LogLevel       string `envconfig:"NEWSREEL_LOG_LEVEL" default:"info"`

	// Collaborator endpoints. Each one is an independent network service;
	// the pipeline treats them as black boxes.
	NewsURL       string        `envconfig:"NEWSREEL_NEWS_URL" default:"https://newsapi.org/v2"`
	NewsAPIKey    string        `envconfig:"NEWSREEL_NEWS_API_KEY" default:""`
	SummarizerURL string        `envconfig:"NEWSREEL_SUMMARIZER_URL" default:"http://localhost:9001"`
	SpeechURL     string        `envconfig:"NEWSREEL_SPEECH_URL" default:"http://localhost:9002"`
	RendererURL   string        `envconfig:"NEWSREEL_RENDERER_URL" default:"http://localhost:9003"`
	PublisherURL  string        `envconfig:"NEWSREEL_PUBLISHER_URL" default:"http://localhost:9004"`
	ClientTimeout time.Duration `envconfig:"NEWSREEL_CLIENT_TIMEOUT" default:"60s"`
}

type automationConfig struct {
	Topics         []string      `envconfig:"NEWSREEL_TOPICS" default:"Economy,Technology,Science"`
	Language       string        `envconfig:"NEWSREEL_LANGUAGE" default:"en"`
	SyncInterval   time.Duration `envconfig:"NEWSREEL_SYNC_INTERVAL" default:"1h"`
	LookbackWindow time.Duration `envconfig:"NEWSREEL_LOOKBACK_WINDOW" default:"24h"`
	TopicQuota     int           `envconfig:"NEWSREEL_TOPIC_QUOTA" default:"3"`
	CandidateLimit int           `envconfig:"NEWSREEL_CANDIDATE_LIMIT" default:"5"`
	SyncCap        int           `envconfig:"NEWSREEL_SYNC_CAP" default:"2"`
	CreationDelay  time.Duration `envconfig:"NEWSREEL_CREATION_DELAY" default:"5s"`
	TargetLengths  []int         `envconfig:"NEWSREEL_TARGET_LENGTHS" default:"60,90,120"`
	AutoPublish    bool          `envconfig:"NEWSREEL_AUTO_PUBLISH" default:"true"`

	ReaperInterval    time.Duration `envconfig:"NEWSREEL_REAPER_INTERVAL" default:"15m"`
	StaleAfter        time.Duration `envconfig:"NEWSREEL_STALE_AFTER" default:"30m"`
	RetentionInterval time.Duration `envconfig:"NEWSREEL_RETENTION_INTERVAL" default:"24h"`
	RetentionWindow   time.Duration `envconfig:"NEWSREEL_RETENTION_WINDOW" default:"720h"`

	StageTimeout      time.Duration `envconfig:"NEWSREEL_STAGE_TIMEOUT" default:"5m"`
	MaxConcurrentJobs int64         `envconfig:"NEWSREEL_MAX_CONCURRENT_JOBS" default:"8"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}
