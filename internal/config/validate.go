package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAList(); err != nil {
		return err
	}
	if err := c.validateSTRM(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAList() error {
	if strings.TrimSpace(c.AList.URL) == "" {
		return errors.New("alist.url must be set (or export ALIST_URL)")
	}
	if err := validateHTTPURL("alist.url", c.AList.URL); err != nil {
		return err
	}
	if c.AList.TimeoutSeconds <= 0 {
		return errors.New("alist.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSTRM() error {
	if strings.TrimSpace(c.STRM.SaveDir) == "" {
		return errors.New("strm.save_dir must be set (or export STRM_SAVE_DIR)")
	}
	if strings.TrimSpace(c.STRM.Server) == "" {
		return errors.New("strm.server must be set (or export STRM_SERVER)")
	}
	if err := validateHTTPURL("strm.server", c.STRM.Server); err != nil {
		return err
	}
	if len(c.STRM.VideoExts) == 0 {
		return errors.New("strm.video_exts must include at least one extension")
	}
	if len(c.STRM.ReplaceFrom) > 0 && c.STRM.ReplaceTo == "" {
		return errors.New("strm.replace_to must be set when strm.replace_from is configured")
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, value)
	}
	return nil
}
