package config

import "time"

// ServerConfig configures the registration HTTP server.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`

	// SecureCookies marks the remember cookie Secure. Leave off for plain-http local runs.
	SecureCookies bool `yaml:"secure_cookies"`
}

// GetReadTimeout returns the read timeout as a duration.
func (s ServerConfig) GetReadTimeout() time.Duration {
	return parseDurationOr(s.ReadTimeout, 10*time.Second)
}

// GetWriteTimeout returns the write timeout as a duration.
func (s ServerConfig) GetWriteTimeout() time.Duration {
	return parseDurationOr(s.WriteTimeout, 10*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown timeout.
func (s ServerConfig) GetShutdownTimeout() time.Duration {
	return parseDurationOr(s.ShutdownTimeout, 5*time.Second)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
