package types

import "time"

// ClientConfig holds settings for the arXiv search client.
type ClientConfig struct {
	// BaseURL overrides the arXiv query endpoint. Empty uses the default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Timeout is the HTTP request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with API requests
	// (e.g. "arxiv-harvester/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// PageDelay is the mandatory minimum gap between page requests,
	// per arXiv API rate-limit guidance (default 3s).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`

	// PageSize is the number of entries requested per page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// MaxRetries bounds retry attempts for a failing page request
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// WithDefaults fills unset fields with their default values.
func (c ClientConfig) WithDefaults() ClientConfig {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "arxiv-harvester/0.1"
	}
	if c.PageDelay <= 0 {
		c.PageDelay = 3 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}
