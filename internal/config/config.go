// ABOUTME: Configuration loading and parsing for the lantern message base
// ABOUTME: Supports TOML files with environment variable expansion

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the complete lantern configuration.
type Config struct {
	System   SystemConfig             `toml:"system"`
	Msg      MsgConfig                `toml:"msg"`
	Msgnet   map[string]NetworkConfig `toml:"msgnet"`
	Database DatabaseConfig           `toml:"database"`
	Logging  LoggingConfig            `toml:"logging"`
}

// SystemConfig holds node-wide identity settings.
type SystemConfig struct {
	BBSName string `toml:"bbsname"`
}

// MsgConfig holds message-base settings. The tag lists are comma-separated
// in the file and parsed into slices at load time.
type MsgConfig struct {
	OriginLine string `toml:"origin_line"`

	NetworkTagsRaw string `toml:"network_tags"`
	ServerTagsRaw  string `toml:"server_tags"`

	NetworkTags []string `toml:"-"`
	ServerTags  []string `toml:"-"`
}

// NetworkConfig holds the table names for one federated network,
// keyed by its tag under [msgnet.<tag>].
type NetworkConfig struct {
	TransDBName string `toml:"trans_db_name"`
	QueueDBName string `toml:"queue_db_name"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw TOML content
	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Msg.NetworkTags = splitTagList(cfg.Msg.NetworkTagsRaw)
	cfg.Msg.ServerTags = splitTagList(cfg.Msg.ServerTagsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// splitTagList parses a comma-separated tag list, trimming whitespace and
// dropping empty entries.
func splitTagList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Network returns the table configuration for the named network tag.
func (c *Config) Network(tag string) (NetworkConfig, bool) {
	net, ok := c.Msgnet[tag]
	return net, ok
}

// Validate checks that all required configuration fields are present.
// Network settings are optional: a missing [msgnet.<tag>] section disables
// dispatch for that network rather than failing validation.
func (c *Config) Validate() error {
	if c.System.BBSName == "" {
		return fmt.Errorf("system.bbsname is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
