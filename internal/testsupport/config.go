package testsupport

import (
	"path/filepath"
	"testing"

	"strmhook/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.AList.URL = "http://127.0.0.1:5244"
	cfgVal.AList.TimeoutSeconds = 5
	cfgVal.STRM.Server = "http://127.0.0.1:5244/d"
	cfgVal.STRM.SaveDir = filepath.Join(base, "strm")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAListURL points the test config at a fake AList server.
func WithAListURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AList.URL = url
	}
}

// WithSTRMServer overrides the playback prefix. The value is used as given.
func WithSTRMServer(server string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.STRM.Server = server
	}
}

// WithReplace configures the prefix rewrite applied to playback URLs.
func WithReplace(to string, from ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.STRM.ReplaceFrom = from
		b.cfg.STRM.ReplaceTo = to
	}
}

// WithEncodePath toggles percent-encoding of playback URL paths.
func WithEncodePath(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.STRM.EncodePath = enabled
	}
}

// WithServerToken requires a bearer token on protected routes.
func WithServerToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Token = token
	}
}

// WithHistory toggles the run ledger.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}
