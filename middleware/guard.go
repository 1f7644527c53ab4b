package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

type sessionContextKey struct{}

// SessionFromContext returns the session snapshot a Guard admitted the
// request with.
func SessionFromContext(ctx context.Context) (goSession.Snapshot, bool) {
	snap, ok := ctx.Value(sessionContextKey{}).(goSession.Snapshot)
	return snap, ok
}

// Requirement is a route predicate evaluated against the Manager.
type Requirement func(m *goSession.Manager) bool

func RequirePermission(p string) Requirement {
	return func(m *goSession.Manager) bool { return m.HasPermission(p) }
}

func RequireAnyPermission(perms ...string) Requirement {
	return func(m *goSession.Manager) bool { return m.HasAnyPermission(perms...) }
}

func RequireAllPermissions(perms ...string) Requirement {
	return func(m *goSession.Manager) bool { return m.HasAllPermissions(perms...) }
}

func RequireRole(name string) Requirement {
	return func(m *goSession.Manager) bool { return m.HasRole(name) }
}

func RequireUserType(t string) Requirement {
	return func(m *goSession.Manager) bool { return m.HasUserType(t) }
}

// RequireDashboard admits FULL and LIMITED sessions.
func RequireDashboard() Requirement {
	return func(m *goSession.Manager) bool { return m.CanAccessDashboard() }
}

// RequireFullFeatures admits FULL sessions only.
func RequireFullFeatures() Requirement {
	return func(m *goSession.Manager) bool { return m.CanAccessFullFeatures() }
}

// Options tunes Guard responses.
type Options struct {
	// InitWait bounds how long a request waits for the first check to
	// settle before getting 503.
	InitWait time.Duration
	// RetryAfter is advertised on 503 and error responses.
	RetryAfter time.Duration
	// RetryPath is where the error panel points for a retry.
	RetryPath string
}

// DefaultOptions waits two seconds for initialization and points retries at
// /session/retry.
func DefaultOptions() Options {
	return Options{
		InitWait:   2 * time.Second,
		RetryAfter: time.Second,
		RetryPath:  "/session/retry",
	}
}

// Guard admits requests only for an initialized, authenticated session that
// satisfies every requirement. It answers 503 while the session is still
// initializing, 500 when a blocking error is present, 401 without a session
// and 403 when the account is blocked or a requirement fails. A failed login
// is never a blocking error.
func Guard(m *goSession.Manager, reqs ...Requirement) func(http.Handler) http.Handler {
	return GuardWithOptions(m, DefaultOptions(), reqs...)
}

// GuardWithOptions is Guard with explicit options.
func GuardWithOptions(m *goSession.Manager, opts Options, reqs ...Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			snap := m.State()
			if !snap.IsInitialized && opts.InitWait > 0 {
				ctx, cancel := context.WithTimeout(r.Context(), opts.InitWait)
				err := m.WaitInitialized(ctx)
				cancel()
				if err == nil {
					snap = m.State()
				}
			}
			if !snap.IsInitialized {
				setRetryAfter(w, opts.RetryAfter)
				http.Error(w, "session initializing", http.StatusServiceUnavailable)
				return
			}

			if snap.BlockingError != "" && !snap.IsAuthenticated {
				setRetryAfter(w, opts.RetryAfter)
				msg := "session error: " + snap.BlockingError
				if opts.RetryPath != "" {
					msg += " (retry: POST " + opts.RetryPath + ")"
				}
				http.Error(w, msg, http.StatusInternalServerError)
				return
			}

			if !snap.IsAuthenticated {
				if blocked(snap) {
					http.Error(w, "account blocked", http.StatusForbidden)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			for _, req := range reqs {
				if req != nil && !req(m) {
					http.Error(w, "access denied", http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, snap)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RetryHandler clears the display error and re-runs the session check. A
// "next" query parameter holding a local path is followed with 303.
func RetryHandler(m *goSession.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if m == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m.ClearError()
		m.CheckAuth(r.Context())

		if next := r.URL.Query().Get("next"); isLocalPath(next) {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// blocked reports a login the server refused for account status. The
// manager keeps that verdict after wiping the session.
func blocked(snap goSession.Snapshot) bool {
	return snap.AccessLevel == goSession.AccessNone || snap.AccountStatus.Blocked()
}

func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	if d <= 0 {
		return
	}
	secs := int(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}
