package config

const redacted = "***"

// Snapshot is the read-only view of the settings served by the config
// introspection route. Secrets are redacted.
type Snapshot struct {
	AListURL       string   `json:"alist_url" toml:"alist_url"`
	AListToken     string   `json:"alist_token" toml:"alist_token"`
	AListRefresh   bool     `json:"alist_refresh" toml:"alist_refresh"`
	AListTimeout   int      `json:"alist_timeout_seconds" toml:"alist_timeout_seconds"`
	STRMServer     string   `json:"strm_server" toml:"strm_server"`
	STRMSaveDir    string   `json:"strm_save_dir" toml:"strm_save_dir"`
	ReplaceFrom    []string `json:"strm_replace_from" toml:"strm_replace_from"`
	ReplaceTo      string   `json:"strm_replace_to" toml:"strm_replace_to"`
	ReplacePath    string   `json:"strm_replace_path" toml:"strm_replace_path"`
	VideoExts      []string `json:"video_exts" toml:"video_exts"`
	EncodePath     bool     `json:"encode_path" toml:"encode_path"`
	Bind           string   `json:"bind" toml:"bind"`
	WebhookToken   string   `json:"webhook_token" toml:"webhook_token"`
	StateDir       string   `json:"state_dir" toml:"state_dir"`
	HistoryEnabled bool     `json:"history_enabled" toml:"history_enabled"`
	LogFormat      string   `json:"log_format" toml:"log_format"`
	LogLevel       string   `json:"log_level" toml:"log_level"`
}

// Snapshot returns the current settings with tokens redacted.
func (c *Config) Snapshot() Snapshot {
	replaceFrom := make([]string, len(c.STRM.ReplaceFrom))
	copy(replaceFrom, c.STRM.ReplaceFrom)
	exts := make([]string, len(c.STRM.VideoExts))
	copy(exts, c.STRM.VideoExts)

	return Snapshot{
		AListURL:       c.AList.URL,
		AListToken:     redact(c.AList.Token),
		AListRefresh:   c.AList.Refresh,
		AListTimeout:   c.AList.TimeoutSeconds,
		STRMServer:     c.STRM.Server,
		STRMSaveDir:    c.STRM.SaveDir,
		ReplaceFrom:    replaceFrom,
		ReplaceTo:      c.STRM.ReplaceTo,
		ReplacePath:    c.STRM.ReplacePath,
		VideoExts:      exts,
		EncodePath:     c.STRM.EncodePath,
		Bind:           c.Server.Bind,
		WebhookToken:   redact(c.Server.Token),
		StateDir:       c.Paths.StateDir,
		HistoryEnabled: c.History.Enabled,
		LogFormat:      c.Logging.Format,
		LogLevel:       c.Logging.Level,
	}
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return redacted
}
