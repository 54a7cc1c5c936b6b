package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_BaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "localhost:8081", cfg.BaseURL)
	assert.Equal(t, "http://localhost:8081", cfg.ServerURL)

	cfg = &Config{BaseURL: "notes.example.com:443", EnableHTTPS: true}
	cfg.ApplyDefaults()
	assert.Equal(t, "https://notes.example.com:443", cfg.ServerURL)

	// scheme or path in BaseURL falls back to the default
	cfg = &Config{BaseURL: "http://bad/url"}
	cfg.ApplyDefaults()
	assert.Equal(t, "localhost:8081", cfg.BaseURL)
}

func TestApplyDefaults_FillsClientPaths(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "kite.db", cfg.DatabaseDSN)
	assert.Positive(t, cfg.RateLimitRPS)
	assert.Positive(t, cfg.RateLimitBurst)
}
