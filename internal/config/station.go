package config

import (
	"fmt"
	"os"
)

// Provider dialects a station can speak.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// StationConfig is a named provider endpoint.
// API keys are never stored in the file; APIKeyEnv names the variable to read.
type StationConfig struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Provider    string   `json:"provider"`
	APIBase     string   `json:"api_base"`
	Model       string   `json:"model"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature *float64 `json:"temperature,omitempty"`
	APIKeyEnv   string   `json:"api_key_env"`
}

// APIKey reads the station's key from the environment.
func (s StationConfig) APIKey() (string, error) {
	if s.APIKeyEnv == "" {
		return "", fmt.Errorf("station %q has no api_key_env", s.ID)
	}
	key := os.Getenv(s.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("station %q: environment variable %s is not set", s.ID, s.APIKeyEnv)
	}
	return key, nil
}

// BuiltinStations are used when the config file declares none.
func BuiltinStations() []StationConfig {
	return []StationConfig{
		{
			ID:        "anthropic",
			Name:      "Anthropic",
			Provider:  ProviderAnthropic,
			APIBase:   "https://api.anthropic.com",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 8192,
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		{
			ID:        "gemini",
			Name:      "Google Gemini",
			Provider:  ProviderGemini,
			APIBase:   "https://generativelanguage.googleapis.com",
			Model:     "gemini-2.5-flash",
			MaxTokens: 8192,
			APIKeyEnv: "GEMINI_API_KEY",
		},
	}
}

// StationList returns the configured stations, or the built-in ones.
func (c *Config) StationList() []StationConfig {
	if len(c.Stations) > 0 {
		return c.Stations
	}
	return BuiltinStations()
}

// Station picks a station by id. An empty id selects DefaultStation,
// then the first station in the list.
func (c *Config) Station(id string) (StationConfig, error) {
	stations := c.StationList()
	if id == "" {
		id = c.DefaultStation
	}
	if id == "" {
		return stations[0], nil
	}
	for _, s := range stations {
		if s.ID == id {
			return s, nil
		}
	}
	return StationConfig{}, fmt.Errorf("unknown station %q", id)
}
