package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv reads a .env file beside the config file, falling back to the
// working directory. Variables already present in the process environment
// keep their value.
func loadDotEnv(configPath string) error {
	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".env"))
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat env file: %w", err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load env file %s: %w", candidate, err)
		}
	}
	return nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() error {
	if value, ok := os.LookupEnv("ALIST_URL"); ok {
		c.AList.URL = value
	}
	if value, ok := os.LookupEnv("ALIST_TOKEN"); ok {
		c.AList.Token = value
	}
	if value, ok := os.LookupEnv("STRM_SERVER"); ok {
		c.STRM.Server = value
	}
	if value, ok := os.LookupEnv("STRM_SAVE_DIR"); ok {
		c.STRM.SaveDir = value
	}
	if value, ok := os.LookupEnv("STRM_REPLACE_PATH"); ok {
		c.STRM.ReplacePath = value
	}
	if value, ok := os.LookupEnv("STRM_REPLACE_FROM"); ok {
		c.STRM.ReplaceFrom = splitList(value)
	}
	if value, ok := os.LookupEnv("STRM_REPLACE_TO"); ok {
		c.STRM.ReplaceTo = value
	}
	if value, ok := os.LookupEnv("WEBHOOK_TOKEN"); ok {
		c.Server.Token = value
	}
	if err := c.applyBindEnv(); err != nil {
		return err
	}
	if value, ok := os.LookupEnv("STRMHOOK_STATE_DIR"); ok {
		c.Paths.StateDir = value
	}
	if value, ok := os.LookupEnv("STRMHOOK_LOG_LEVEL"); ok {
		c.Logging.Level = value
	}
	if value, ok := os.LookupEnv("STRMHOOK_LOG_FORMAT"); ok {
		c.Logging.Format = value
	}
	return nil
}

func (c *Config) applyBindEnv() error {
	host, hostSet := os.LookupEnv("WEBHOOK_HOST")
	port, portSet := os.LookupEnv("WEBHOOK_PORT")
	if !hostSet && !portSet {
		return nil
	}
	currentHost, currentPort, err := net.SplitHostPort(strings.TrimSpace(c.Server.Bind))
	if err != nil {
		currentHost, currentPort, _ = net.SplitHostPort(defaultBind)
	}
	if hostSet {
		currentHost = strings.TrimSpace(host)
	}
	if portSet {
		port = strings.TrimSpace(port)
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return fmt.Errorf("WEBHOOK_PORT: invalid port %q", port)
		}
		currentPort = port
	}
	c.Server.Bind = net.JoinHostPort(currentHost, currentPort)
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
