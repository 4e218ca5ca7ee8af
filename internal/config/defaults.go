package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Agent AgentConfig `json:"agent"`

	// DefaultStation names the station used when --station is not given.
	// Empty means the first configured station.
	DefaultStation string          `json:"default_station"`
	Stations       []StationConfig `json:"stations"`

	Tools ToolsConfig `json:"tools"`
	Jobs  JobsConfig  `json:"jobs"`
}

type AgentConfig struct {
	MaxToolRounds       int    `json:"max_tool_rounds"`       // Default: 25
	LoopDetectionWindow int    `json:"loop_detection_window"` // Default: 10
	SystemPromptExtra   string `json:"system_prompt_extra"`
}

type ToolsConfig struct {
	// File Operations
	MaxFileSize      int64 `json:"max_file_size"`      // Default: 20 * 1024 * 1024 (20MB)
	DefaultReadLimit int   `json:"default_read_limit"` // Default: 2000 lines

	// Search
	MaxLineLength  int `json:"max_line_length"`  // Default: 2000
	MaxGlobResults int `json:"max_glob_results"` // Default: 1000
	MaxGrepResults int `json:"max_grep_results"` // Default: 500

	// Command Execution
	DefaultShellTimeoutMs int   `json:"default_shell_timeout_ms"` // Default: 120000
	MaxShellTimeoutMs     int   `json:"max_shell_timeout_ms"`     // Default: 600000
	MaxCommandOutputSize  int64 `json:"max_command_output_size"`  // Default: 1024 * 1024 (1MB)

	// Results sent back to the model are cut to this many characters.
	MaxToolOutputChars int `json:"max_tool_output_chars"` // Default: 30000
}

type JobsConfig struct {
	MaxJobs           int `json:"max_jobs"`            // Default: 32
	OutputBufferBytes int `json:"output_buffer_bytes"` // Default: 1024 * 1024 per stream
	KillGraceMs       int `json:"kill_grace_ms"`       // Default: 2000
}

// DefaultConfig returns the default configuration.
// Stations are left empty; StationList() falls back to BuiltinStations.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxToolRounds:       25,
			LoopDetectionWindow: 10,
		},
		Tools: ToolsConfig{
			MaxFileSize:           20 * 1024 * 1024,
			DefaultReadLimit:      2000,
			MaxLineLength:         2000,
			MaxGlobResults:        1000,
			MaxGrepResults:        500,
			DefaultShellTimeoutMs: 120000,
			MaxShellTimeoutMs:     600000,
			MaxCommandOutputSize:  1024 * 1024,
			MaxToolOutputChars:    30000,
		},
		Jobs: JobsConfig{
			MaxJobs:           32,
			OutputBufferBytes: 1024 * 1024,
			KillGraceMs:       2000,
		},
	}
}
