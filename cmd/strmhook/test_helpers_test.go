package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	saveDir    string
	stateDir   string
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ALIST_URL", "ALIST_TOKEN", "STRM_SERVER", "STRM_SAVE_DIR", "STRM_REPLACE_PATH",
		"STRM_REPLACE_FROM", "STRM_REPLACE_TO", "WEBHOOK_HOST", "WEBHOOK_PORT", "WEBHOOK_TOKEN",
		"STRMHOOK_STATE_DIR", "STRMHOOK_LOG_LEVEL", "STRMHOOK_LOG_FORMAT",
	} {
		if previous, ok := os.LookupEnv(key); ok {
			_ = os.Unsetenv(key)
			t.Cleanup(func() { _ = os.Setenv(key, previous) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(key) })
		}
	}
}

func setupCLITestEnv(t *testing.T, alistURL string, extra string) *cliTestEnv {
	t.Helper()
	clearEnv(t)

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Chdir(base)

	env := &cliTestEnv{
		configPath: filepath.Join(base, "strmhook.toml"),
		saveDir:    filepath.Join(base, "strm"),
		stateDir:   filepath.Join(base, "state"),
	}
	content := fmt.Sprintf(`[alist]
url = %q

[strm]
server = "http://x/d"
save_dir = %q

[paths]
state_dir = %q
%s`, alistURL, env.saveDir, env.stateDir, extra)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
