package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type GhostConfig struct {
	URL         string `yaml:"url" validate:"required|fullUrl"`
	AdminAPIKey string `yaml:"adminApiKey" validate:"required"`
}

type PollConfig struct {
	Interval         time.Duration `yaml:"interval" validate:"required|min:1"`
	FailureThreshold int           `yaml:"failureThreshold"`
	RequestTimeout   time.Duration `yaml:"requestTimeout"`
}

type WebhookConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Secret    string `yaml:"secret"`
	PublicURL string `yaml:"publicUrl"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	Ghost       GhostConfig   `yaml:"ghost"`
	Poll        PollConfig    `yaml:"poll"`
	Webhook     WebhookConfig `yaml:"webhook"`
	WebServer   Server        `yaml:"webServer"`
	Persistence Persistence   `yaml:"persistence"`
	Logger      LoggerConfig  `yaml:"logger"`
	Cache       CacheConfig   `yaml:"cache"`
	Metrics     MetricsConfig `yaml:"metrics"`
}
