package goSession

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "check interval zero invalid",
			mutate: func(c *Config) {
				c.Timeout.CheckInterval = 0
			},
			wantValid: false,
		},
		{
			name: "check interval ignored when timeout disabled",
			mutate: func(c *Config) {
				c.Timeout.Enabled = false
				c.Timeout.CheckInterval = 0
			},
			wantValid: true,
		},
		{
			name: "auto refresh above warning invalid",
			mutate: func(c *Config) {
				c.Timeout.AutoRefreshThreshold = 10 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "check interval not below auto refresh invalid",
			mutate: func(c *Config) {
				c.Timeout.CheckInterval = 2 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "relative home route invalid",
			mutate: func(c *Config) {
				c.Routes.Home = "dashboard"
			},
			wantValid: false,
		},
		{
			name: "identical storage keys invalid",
			mutate: func(c *Config) {
				c.Storage.RefreshTokenKey = c.Storage.AccessTokenKey
			},
			wantValid: false,
		},
		{
			name: "empty storage key invalid",
			mutate: func(c *Config) {
				c.Storage.AccessTokenKey = ""
			},
			wantValid: false,
		},
		{
			name: "identical signal keys invalid",
			mutate: func(c *Config) {
				c.Broadcast.LogoutSignalKey = c.Broadcast.LoginSignalKey
			},
			wantValid: false,
		},
		{
			name: "signal keys ignored when broadcast disabled",
			mutate: func(c *Config) {
				c.Broadcast.Enabled = false
				c.Broadcast.LoginSignalKey = ""
			},
			wantValid: true,
		},
		{
			name: "negative login rate invalid",
			mutate: func(c *Config) {
				c.Security.LoginAttemptsPerMinute = -1
			},
			wantValid: false,
		},
		{
			name: "login throttle without burst invalid",
			mutate: func(c *Config) {
				c.Security.LoginBurst = 0
			},
			wantValid: false,
		},
		{
			name: "login throttle disabled valid",
			mutate: func(c *Config) {
				c.Security.LoginAttemptsPerMinute = 0
				c.Security.LoginBurst = 0
			},
			wantValid: true,
		},
		{
			name: "samesite none without secure invalid",
			mutate: func(c *Config) {
				c.Storage.MirrorCookies = true
				c.Security.SameSitePolicy = http.SameSiteNoneMode
				c.Security.RequireSecureCookies = false
			},
			wantValid: false,
		},
		{
			name: "request timeout zero invalid",
			mutate: func(c *Config) {
				c.Requests.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "audit buffer zero invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatalf("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Timeout.CheckInterval != 30*time.Second || cfg.Timeout.IdleTimeout != 30*time.Minute {
		t.Fatalf("unexpected timeout defaults: %+v", cfg.Timeout)
	}
	if cfg.Timeout.WarningThreshold != 5*time.Minute || cfg.Timeout.AutoRefreshThreshold != 2*time.Minute {
		t.Fatalf("unexpected threshold defaults: %+v", cfg.Timeout)
	}
	if cfg.Storage.AccessTokenKey != "accessToken" || cfg.Storage.RefreshTokenKey != "refreshToken" {
		t.Fatalf("unexpected storage keys: %+v", cfg.Storage)
	}
	if cfg.Broadcast.LoginSignalKey != "auth-login-event" || cfg.Broadcast.LogoutSignalKey != "auth-logout-event" {
		t.Fatalf("unexpected signal keys: %+v", cfg.Broadcast)
	}
	if cfg.Audit.Enabled || cfg.Metrics.Enabled {
		t.Fatalf("audit and metrics must default off")
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
[timeout]
idle_timeout = "10m"
check_interval = "15s"

[routes]
home = "/app"

[security]
login_attempts_per_minute = 3
login_burst = 2
same_site = "lax"

[metrics]
enabled = true
latency_histograms = true
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Timeout.IdleTimeout != 10*time.Minute || cfg.Timeout.CheckInterval != 15*time.Second {
		t.Fatalf("durations not applied: %+v", cfg.Timeout)
	}
	if cfg.Timeout.WarningThreshold != 5*time.Minute {
		t.Fatalf("absent key must keep default, got %v", cfg.Timeout.WarningThreshold)
	}
	if cfg.Routes.Home != "/app" || cfg.Routes.ProfileCompletion != "/profile/complete" {
		t.Fatalf("unexpected routes: %+v", cfg.Routes)
	}
	if cfg.Security.LoginAttemptsPerMinute != 3 || cfg.Security.LoginBurst != 2 || cfg.Security.SameSitePolicy != http.SameSiteLaxMode {
		t.Fatalf("unexpected security: %+v", cfg.Security)
	}
	if !cfg.Metrics.Enabled || !cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("metrics not applied: %+v", cfg.Metrics)
	}
}

func TestLoadConfigFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad duration", body: "[timeout]\nidle_timeout = \"soon\"\n", want: "decode config"},
		{name: "bad samesite", body: "[security]\nsame_site = \"sometimes\"\n", want: "same_site"},
		{name: "fails validation", body: "[requests]\ntimeout = \"0s\"\n", want: "Requests Timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfigFile(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
