package config

import "time"

// ChatClient definition chat_client YAML structure
type ChatClient struct {
	StatusPort     string        `mapstructure:"status_port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	HistoryPage    int           `mapstructure:"history_page_size"`

	Directory  ServiceConfig `mapstructure:"directory"`
	Clinical   ServiceConfig `mapstructure:"clinical"`
	Scheduling ServiceConfig `mapstructure:"scheduling"`

	Live  LiveConfig  `mapstructure:"live"`
	Redis RedisConfig `mapstructure:"redis"`
}

// ServiceConfig definition one REST collaborator
type ServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Name    string `mapstructure:"service_name"`
}

// LiveConfig definition the real-time channel
type LiveConfig struct {
	// Transport is "websocket" or "redis"
	Transport string `mapstructure:"transport"`
	URL       string `mapstructure:"url"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	RedisDB  int    `mapstructure:"redis_db"`
}
