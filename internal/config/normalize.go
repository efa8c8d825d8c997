package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAList()
	c.normalizeSTRM()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeHistory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeAList() {
	c.AList.URL = strings.TrimRight(strings.TrimSpace(c.AList.URL), "/")
	c.AList.Token = strings.TrimSpace(c.AList.Token)
	if c.AList.TimeoutSeconds == 0 {
		c.AList.TimeoutSeconds = defaultAListTimeout
	}
}

func (c *Config) normalizeSTRM() {
	c.STRM.Server = NormalizeServer(c.STRM.Server)

	replaceFrom := make([]string, 0, len(c.STRM.ReplaceFrom))
	for _, prefix := range c.STRM.ReplaceFrom {
		if normalized := normalizePrefix(prefix); normalized != "" {
			replaceFrom = append(replaceFrom, normalized)
		}
	}
	c.STRM.ReplaceFrom = replaceFrom
	if to := strings.TrimSpace(c.STRM.ReplaceTo); to != "" {
		c.STRM.ReplaceTo = normalizePrefix(to)
		if c.STRM.ReplaceTo == "" {
			c.STRM.ReplaceTo = "/"
		}
	} else {
		c.STRM.ReplaceTo = ""
	}
	if replacePath := strings.TrimSpace(c.STRM.ReplacePath); replacePath != "" {
		c.STRM.ReplacePath = normalizePrefix(replacePath)
	} else {
		c.STRM.ReplacePath = ""
	}

	exts := make([]string, 0, len(c.STRM.VideoExts))
	seen := make(map[string]struct{}, len(c.STRM.VideoExts))
	for _, ext := range c.STRM.VideoExts {
		normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.STRM.VideoExts = exts
}

// NormalizeServer applies the playback prefix rules: a missing scheme becomes
// http://, trailing slashes are dropped and the AList download route /d is
// appended when absent.
func NormalizeServer(server string) string {
	server = strings.TrimSpace(server)
	if server == "" {
		return ""
	}
	if !strings.HasPrefix(server, "http") {
		server = "http://" + server
	}
	server = strings.TrimRight(server, "/")
	if !strings.HasSuffix(server, playbackDownloadRouteTail) {
		server += playbackDownloadRouteTail
	}
	return server
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.STRM.SaveDir) != "" {
		if c.STRM.SaveDir, err = expandPath(strings.TrimSpace(c.STRM.SaveDir)); err != nil {
			return fmt.Errorf("strm.save_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.Token = strings.TrimSpace(c.Server.Token)
}

func (c *Config) normalizeHistory() {
	if c.History.Retention < 0 {
		c.History.Retention = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
