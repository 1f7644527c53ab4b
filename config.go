package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable of a [Manager]. Obtain defaults with
// [DefaultConfig], adjust, then pass to [Builder.WithConfig].
type Config struct {
	Timeout   TimeoutConfig
	Routes    RoutesConfig
	Storage   StorageConfig
	Broadcast BroadcastConfig
	Security  SecurityConfig
	Requests  RequestsConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TIMEOUT CONFIG
====================================
*/

// TimeoutConfig drives the cooperative session-timeout check.
type TimeoutConfig struct {
	Enabled              bool
	CheckInterval        time.Duration
	IdleTimeout          time.Duration
	WarningThreshold     time.Duration
	AutoRefreshThreshold time.Duration
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the post-login destinations.
type RoutesConfig struct {
	Home              string
	ProfileCompletion string
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig fixes the durable storage layout. Keys must stay stable
// across releases so tokens survive a restart.
type StorageConfig struct {
	AccessTokenKey  string
	RefreshTokenKey string
	MirrorCookies   bool
}

// BroadcastConfig controls cross-instance login/logout signalling.
type BroadcastConfig struct {
	Enabled         bool
	LoginSignalKey  string
	LogoutSignalKey string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds client-side throttling and cookie-mirror policy.
type SecurityConfig struct {
	LoginAttemptsPerMinute int
	LoginBurst             int
	RequireSecureCookies   bool
	SameSitePolicy         http.SameSite
	CookiePath             string
}

// RequestsConfig bounds every call made to the auth API.
type RequestsConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Timeout: TimeoutConfig{
			Enabled:              true,
			CheckInterval:        30 * time.Second,
			IdleTimeout:          30 * time.Minute,
			WarningThreshold:     5 * time.Minute,
			AutoRefreshThreshold: 2 * time.Minute,
		},
		Routes: RoutesConfig{
			Home:              "/dashboard",
			ProfileCompletion: "/profile/complete",
		},
		Storage: StorageConfig{
			AccessTokenKey:  "accessToken",
			RefreshTokenKey: "refreshToken",
			MirrorCookies:   false,
		},
		Broadcast: BroadcastConfig{
			Enabled:         true,
			LoginSignalKey:  "auth-login-event",
			LogoutSignalKey: "auth-logout-event",
		},
		Security: SecurityConfig{
			LoginAttemptsPerMinute: 5,
			LoginBurst:             5,
			RequireSecureCookies:   true,
			SameSitePolicy:         http.SameSiteStrictMode,
			CookiePath:             "/",
		},
		Requests: RequestsConfig{
			Timeout: 15 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the production defaults: 30s check interval, 30m
// idle timeout, 5m expiry warning and 2m auto-refresh threshold.
func DefaultConfig() Config {
	return defaultConfig()
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found, or nil.
func (c *Config) Validate() error {
	// Timeout
	if c.Timeout.Enabled {
		if c.Timeout.CheckInterval <= 0 {
			return errors.New("Timeout CheckInterval must be > 0")
		}
		if c.Timeout.IdleTimeout <= 0 {
			return errors.New("Timeout IdleTimeout must be > 0")
		}
		if c.Timeout.WarningThreshold <= 0 {
			return errors.New("Timeout WarningThreshold must be > 0")
		}
		if c.Timeout.AutoRefreshThreshold <= 0 {
			return errors.New("Timeout AutoRefreshThreshold must be > 0")
		}
		if c.Timeout.AutoRefreshThreshold > c.Timeout.WarningThreshold {
			return errors.New("Timeout AutoRefreshThreshold must be <= WarningThreshold")
		}
		if c.Timeout.CheckInterval >= c.Timeout.AutoRefreshThreshold {
			return errors.New("Timeout CheckInterval must be < AutoRefreshThreshold")
		}
	}

	// Routes
	if !strings.HasPrefix(c.Routes.Home, "/") {
		return errors.New("Routes Home must be an absolute path")
	}
	if !strings.HasPrefix(c.Routes.ProfileCompletion, "/") {
		return errors.New("Routes ProfileCompletion must be an absolute path")
	}

	// Storage
	if c.Storage.AccessTokenKey == "" || c.Storage.RefreshTokenKey == "" {
		return errors.New("Storage token keys must not be empty")
	}
	if c.Storage.AccessTokenKey == c.Storage.RefreshTokenKey {
		return errors.New("Storage token keys must differ")
	}

	// Broadcast
	if c.Broadcast.Enabled {
		if c.Broadcast.LoginSignalKey == "" || c.Broadcast.LogoutSignalKey == "" {
			return errors.New("Broadcast signal keys must not be empty when enabled")
		}
		if c.Broadcast.LoginSignalKey == c.Broadcast.LogoutSignalKey {
			return errors.New("Broadcast signal keys must differ")
		}
	}

	// Security
	if c.Security.LoginAttemptsPerMinute < 0 {
		return errors.New("Security LoginAttemptsPerMinute must be >= 0")
	}
	if c.Security.LoginAttemptsPerMinute > 0 && c.Security.LoginBurst <= 0 {
		return errors.New("Security LoginBurst must be > 0 when login throttling is enabled")
	}
	if c.Storage.MirrorCookies && c.Security.SameSitePolicy == http.SameSiteNoneMode && !c.Security.RequireSecureCookies {
		return errors.New("SameSite=None cookies require RequireSecureCookies")
	}

	// Requests
	if c.Requests.Timeout <= 0 {
		return errors.New("Requests Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

/*
====================================
FILE LOADING
====================================
*/

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type fileConfig struct {
	Timeout struct {
		Enabled              *bool     `toml:"enabled"`
		CheckInterval        *duration `toml:"check_interval"`
		IdleTimeout          *duration `toml:"idle_timeout"`
		WarningThreshold     *duration `toml:"warning_threshold"`
		AutoRefreshThreshold *duration `toml:"auto_refresh_threshold"`
	} `toml:"timeout"`
	Routes struct {
		Home              string `toml:"home"`
		ProfileCompletion string `toml:"profile_completion"`
	} `toml:"routes"`
	Storage struct {
		AccessTokenKey  string `toml:"access_token_key"`
		RefreshTokenKey string `toml:"refresh_token_key"`
		MirrorCookies   *bool  `toml:"mirror_cookies"`
	} `toml:"storage"`
	Broadcast struct {
		Enabled         *bool  `toml:"enabled"`
		LoginSignalKey  string `toml:"login_signal_key"`
		LogoutSignalKey string `toml:"logout_signal_key"`
	} `toml:"broadcast"`
	Security struct {
		LoginAttemptsPerMinute *int   `toml:"login_attempts_per_minute"`
		LoginBurst             *int   `toml:"login_burst"`
		RequireSecureCookies   *bool  `toml:"require_secure_cookies"`
		SameSite               string `toml:"same_site"`
		CookiePath             string `toml:"cookie_path"`
	} `toml:"security"`
	Requests struct {
		Timeout *duration `toml:"timeout"`
	} `toml:"requests"`
	Audit struct {
		Enabled    *bool `toml:"enabled"`
		BufferSize *int  `toml:"buffer_size"`
		DropIfFull *bool `toml:"drop_if_full"`
	} `toml:"audit"`
	Metrics struct {
		Enabled           *bool `toml:"enabled"`
		LatencyHistograms *bool `toml:"latency_histograms"`
	} `toml:"metrics"`
}

// LoadConfigFile reads a TOML file over [DefaultConfig] and validates the
// result. Keys absent from the file keep their default value; durations are
// Go duration strings such as "30s" or "5m".
func LoadConfigFile(path string) (Config, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := fc.apply(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	setBool(&cfg.Timeout.Enabled, fc.Timeout.Enabled)
	setDuration(&cfg.Timeout.CheckInterval, fc.Timeout.CheckInterval)
	setDuration(&cfg.Timeout.IdleTimeout, fc.Timeout.IdleTimeout)
	setDuration(&cfg.Timeout.WarningThreshold, fc.Timeout.WarningThreshold)
	setDuration(&cfg.Timeout.AutoRefreshThreshold, fc.Timeout.AutoRefreshThreshold)

	setString(&cfg.Routes.Home, fc.Routes.Home)
	setString(&cfg.Routes.ProfileCompletion, fc.Routes.ProfileCompletion)

	setString(&cfg.Storage.AccessTokenKey, fc.Storage.AccessTokenKey)
	setString(&cfg.Storage.RefreshTokenKey, fc.Storage.RefreshTokenKey)
	setBool(&cfg.Storage.MirrorCookies, fc.Storage.MirrorCookies)

	setBool(&cfg.Broadcast.Enabled, fc.Broadcast.Enabled)
	setString(&cfg.Broadcast.LoginSignalKey, fc.Broadcast.LoginSignalKey)
	setString(&cfg.Broadcast.LogoutSignalKey, fc.Broadcast.LogoutSignalKey)

	setInt(&cfg.Security.LoginAttemptsPerMinute, fc.Security.LoginAttemptsPerMinute)
	setInt(&cfg.Security.LoginBurst, fc.Security.LoginBurst)
	setBool(&cfg.Security.RequireSecureCookies, fc.Security.RequireSecureCookies)
	setString(&cfg.Security.CookiePath, fc.Security.CookiePath)
	if fc.Security.SameSite != "" {
		mode, err := parseSameSite(fc.Security.SameSite)
		if err != nil {
			return err
		}
		cfg.Security.SameSitePolicy = mode
	}

	setDuration(&cfg.Requests.Timeout, fc.Requests.Timeout)

	setBool(&cfg.Audit.Enabled, fc.Audit.Enabled)
	setInt(&cfg.Audit.BufferSize, fc.Audit.BufferSize)
	setBool(&cfg.Audit.DropIfFull, fc.Audit.DropIfFull)

	setBool(&cfg.Metrics.Enabled, fc.Metrics.Enabled)
	setBool(&cfg.Metrics.EnableLatencyHistograms, fc.Metrics.LatencyHistograms)
	return nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	}
	return 0, fmt.Errorf("unsupported same_site value %q", v)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *duration) {
	if v != nil {
		*dst = v.Duration
	}
}
