package resilience

import "time"

// FromSourceConfig builds a RetryConfig from the datastore source settings.
// Non-positive values keep the defaults.
func FromSourceConfig(maxRetries int, initialBackoff time.Duration) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxRetries > 0 {
		cfg.MaxAttempts = maxRetries
	}
	if initialBackoff > 0 {
		cfg.InitialBackoff = initialBackoff
	}
	return cfg
}
