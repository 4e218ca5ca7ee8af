package config

import (
	"fmt"
)

// Validate checks config values for life correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	// Agent
	if c.Agent.MaxToolRounds < 1 {
		errs = append(errs, "agent.max_tool_rounds must be >= 1")
	}
	if c.Agent.LoopDetectionWindow < 0 {
		errs = append(errs, "agent.loop_detection_window must be >= 0")
	}

	// Stations
	seen := make(map[string]bool)
	for i, s := range c.Stations {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("stations[%d].id is required", i))
		} else if seen[s.ID] {
			errs = append(errs, fmt.Sprintf("stations[%d].id %q is duplicated", i, s.ID))
		}
		seen[s.ID] = true
		if s.Provider != ProviderAnthropic && s.Provider != ProviderGemini {
			errs = append(errs, fmt.Sprintf("stations[%d].provider must be %q or %q", i, ProviderAnthropic, ProviderGemini))
		}
		if s.Model == "" {
			errs = append(errs, fmt.Sprintf("stations[%d].model is required", i))
		}
		if s.MaxTokens < 1 {
			errs = append(errs, fmt.Sprintf("stations[%d].max_tokens must be >= 1", i))
		}
		if s.Temperature != nil && (*s.Temperature < 0 || *s.Temperature > 2) {
			errs = append(errs, fmt.Sprintf("stations[%d].temperature must be within [0, 2]", i))
		}
	}
	if c.DefaultStation != "" {
		if _, err := c.Station(c.DefaultStation); err != nil {
			errs = append(errs, fmt.Sprintf("default_station %q does not name a station", c.DefaultStation))
		}
	}

	// Tools
	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.DefaultReadLimit < 1 {
		errs = append(errs, "tools.default_read_limit must be >= 1")
	}
	if c.Tools.MaxLineLength < 1 {
		errs = append(errs, "tools.max_line_length must be >= 1")
	}
	if c.Tools.MaxGlobResults < 1 {
		errs = append(errs, "tools.max_glob_results must be >= 1")
	}
	if c.Tools.MaxGrepResults < 1 {
		errs = append(errs, "tools.max_grep_results must be >= 1")
	}
	if c.Tools.DefaultShellTimeoutMs < 1 {
		errs = append(errs, "tools.default_shell_timeout_ms must be >= 1")
	}
	if c.Tools.MaxShellTimeoutMs < 1 {
		errs = append(errs, "tools.max_shell_timeout_ms must be >= 1")
	}
	if c.Tools.DefaultShellTimeoutMs > c.Tools.MaxShellTimeoutMs {
		errs = append(errs, "tools.default_shell_timeout_ms must be <= tools.max_shell_timeout_ms")
	}
	if c.Tools.MaxCommandOutputSize < 1 {
		errs = append(errs, "tools.max_command_output_size must be >= 1")
	}
	if c.Tools.MaxToolOutputChars < 1 {
		errs = append(errs, "tools.max_tool_output_chars must be >= 1")
	}

	// Jobs
	if c.Jobs.MaxJobs < 1 {
		errs = append(errs, "jobs.max_jobs must be >= 1")
	}
	if c.Jobs.OutputBufferBytes < 1 {
		errs = append(errs, "jobs.output_buffer_bytes must be >= 1")
	}
	if c.Jobs.KillGraceMs < 1 {
		errs = append(errs, "jobs.kill_grace_ms must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
