package collector

import (
	"fmt"

	"github.com/qepting91/reddit-relay/internal/config"
	"github.com/qepting91/reddit-relay/internal/domain"
)

// NewCollector selects the correct implementation based on the mode
func NewCollector(cfg config.CollectorConfig) (domain.Source, error) {
	switch cfg.Mode {
	case "api":
		return NewAPIClient(cfg.ClientID, cfg.ClientSecret, cfg.Username, cfg.Password, cfg.UserAgent)
	case "public", "proxy":
		if cfg.UserAgent == "" {
			return nil, fmt.Errorf("REDDIT_USER_AGENT is required for %s mode", cfg.Mode)
		}
		opts := []PublicOption{
			WithBaseURL(cfg.BaseURL),
			WithTimeout(cfg.Timeout),
			WithMinInterval(cfg.MinInterval),
		}
		if cfg.Mode == "proxy" {
			// The relay paces and retries upstream itself.
			opts = append(opts, WithRelay(cfg.RelayURL), WithMinInterval(0))
		}
		return NewPublicClient(cfg.UserAgent, opts...)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'api', 'public', 'proxy', or 'mock')", cfg.Mode)
	}
}
