package config

type Config struct {
	Api     ApiConfig     `yaml:"api"`
	Fal     FalConfig     `yaml:"fal"`
	Designs DesignsConfig `yaml:"designs"`
}

type ApiConfig struct {
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowedOrigins"`
}

// FalConfig configures the hosted generation queue. ApiKey comes from the
// FAL_KEY environment variable; an empty key is allowed at boot and is
// reported per request instead.
type FalConfig struct {
	ApiKey   string `yaml:"apiKey"`
	BaseUrl  string `yaml:"baseUrl"`
	Endpoint string `yaml:"endpoint"`
	// PollIntervalMs controls how often the queue status is polled.
	PollIntervalMs int `yaml:"pollIntervalMs"`
}

type DesignsConfig struct {
	BaseDir       string `yaml:"baseDir"`
	QueueSize     int    `yaml:"queueSize"`
	MaxConcurrent int    `yaml:"maxConcurrent"`
}
