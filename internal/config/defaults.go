package config

const (
	defaultConfigPath         = "~/.config/strmhook/config.toml"
	defaultAListURL           = "http://127.0.0.1:5244"
	defaultAListTimeout       = 30
	defaultSTRMServer         = "http://127.0.0.1:5244/d"
	defaultSaveDir            = "/data/strm"
	defaultBind               = "0.0.0.0:9527"
	defaultStateDir           = "~/.local/share/strmhook"
	defaultHistoryRetention   = 1000
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	playbackDownloadRouteTail = "/d"
)

var defaultVideoExts = []string{"mp4", "mkv", "flv", "mov", "m4v", "avi", "webm", "wmv", "ts", "rmvb"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	exts := make([]string, len(defaultVideoExts))
	copy(exts, defaultVideoExts)
	return Config{
		AList: AList{
			URL:            defaultAListURL,
			TimeoutSeconds: defaultAListTimeout,
			Refresh:        true,
		},
		STRM: STRM{
			Server:     defaultSTRMServer,
			SaveDir:    defaultSaveDir,
			VideoExts:  exts,
			EncodePath: true,
		},
		Server: Server{
			Bind: defaultBind,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		History: History{
			Enabled:   true,
			Retention: defaultHistoryRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
