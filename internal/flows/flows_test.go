package flows

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type apiErr struct{ msg string }

func (e *apiErr) Error() string { return e.msg }

func apiMessage(err error) (string, bool) {
	var a *apiErr
	if errors.As(err, &a) {
		return a.msg, true
	}
	return "", false
}

func TestDeriveLoginAccess(t *testing.T) {
	cases := []struct {
		name  string
		flags AccessFlags
		want  string
	}{
		{"denied wins", AccessFlags{AccessDenied: true, FullAccess: true}, LevelNone},
		{"full", AccessFlags{FullAccess: true, LimitedAccess: true}, LevelFull},
		{"limited", AccessFlags{LimitedAccess: true}, LevelLimited},
		{"profile access", AccessFlags{ProfileAccess: true}, LevelProfileOnly},
		{"requires completion", AccessFlags{RequiresProfileCompletion: true}, LevelProfileOnly},
		{"inactive status", AccessFlags{AccountStatus: StatusInactive}, LevelProfileOnly},
		{"suspended status", AccessFlags{AccountStatus: StatusSuspended}, LevelNone},
		{"active without flags", AccessFlags{AccountStatus: "ACTIVE"}, LevelNone},
		{"nothing", AccessFlags{}, LevelNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveLoginAccess(tc.flags); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDeriveLoginAccessNeverFullWithoutFlag(t *testing.T) {
	for _, status := range []string{"", "ACTIVE", "INACTIVE", "PENDING", "PENDING_VALIDATION", "REJECTED", "SUSPENDED", "WHATEVER"} {
		if got := DeriveLoginAccess(AccessFlags{AccountStatus: status, LimitedAccess: status == "ACTIVE"}); got == LevelFull {
			t.Fatalf("status %q derived FULL without explicit flag", status)
		}
	}
}

func TestHasAccessFlag(t *testing.T) {
	if HasAccessFlag(AccessFlags{AccountStatus: "ACTIVE"}) {
		t.Fatalf("account status alone is not an access flag")
	}
	for _, f := range []AccessFlags{{AccessDenied: true}, {FullAccess: true}, {LimitedAccess: true}, {ProfileAccess: true}, {RequiresProfileCompletion: true}} {
		if !HasAccessFlag(f) {
			t.Fatalf("expected %+v to carry an access flag", f)
		}
	}
}

func TestParseAccessLevelUnknown(t *testing.T) {
	if got := ParseAccessLevel("SUPERUSER"); got != LevelNone {
		t.Fatalf("expected NO_ACCESS, got %s", got)
	}
	if got := ParseAccessLevel(LevelFull); got != LevelFull {
		t.Fatalf("expected FULL, got %s", got)
	}
}

func TestRedirectFor(t *testing.T) {
	if got := RedirectFor(LevelProfileOnly, "/dashboard", "/profile/complete"); got != "/profile/complete" {
		t.Fatalf("unexpected redirect %q", got)
	}
	if got := RedirectFor(LevelFull, "/dashboard", "/profile/complete"); got != "/dashboard" {
		t.Fatalf("unexpected redirect %q", got)
	}
}

func TestClassifyLogin(t *testing.T) {
	d := ClassifyLogin(nil, &apiErr{msg: "Wrong password"}, apiMessage)
	if d.Failure != LoginFailureRejected || d.Message != "Wrong password" {
		t.Fatalf("unexpected rejection decision: %+v", d)
	}

	d = ClassifyLogin(nil, errors.New("dial tcp: refused"), apiMessage)
	if d.Failure != LoginFailureTransport || d.Message != MsgTransport {
		t.Fatalf("unexpected transport decision: %+v", d)
	}

	d = ClassifyLogin(&LoginReply{
		Message: "Account suspended",
		Flags:   AccessFlags{AccessDenied: true, AccountStatus: StatusSuspended},
	}, nil, apiMessage)
	if d.Failure != LoginFailureBlocked || d.AccessLevel != LevelNone || d.Message != "Account suspended" {
		t.Fatalf("unexpected blocked decision: %+v", d)
	}

	d = ClassifyLogin(&LoginReply{HasUser: true}, nil, apiMessage)
	if d.Failure != LoginFailureIncomplete {
		t.Fatalf("expected incomplete without access token, got %+v", d)
	}

	d = ClassifyLogin(&LoginReply{HasUser: true, AccessToken: "t1", Flags: AccessFlags{FullAccess: true}}, nil, apiMessage)
	if d.Failure != LoginFailureNone || d.AccessLevel != LevelFull {
		t.Fatalf("unexpected success decision: %+v", d)
	}
}

func TestClassifyRefresh(t *testing.T) {
	if got := ClassifyRefresh("", "", &apiErr{msg: "expired"}, apiMessage); got != RefreshFailureRejected {
		t.Fatalf("expected rejected, got %v", got)
	}
	if got := ClassifyRefresh("", "", errors.New("timeout"), apiMessage); got != RefreshFailureTransport {
		t.Fatalf("expected transport, got %v", got)
	}
	if got := ClassifyRefresh("a", "", nil, apiMessage); got != RefreshFailureIncomplete {
		t.Fatalf("expected incomplete, got %v", got)
	}
	if got := ClassifyRefresh("a", "r", nil, apiMessage); got != RefreshFailureNone {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if got := TokenExpiry(now, 3600, "t", nil); !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", got)
	}

	claimExp := now.Add(10 * time.Minute)
	got := TokenExpiry(now, 0, "t", func(string) (time.Time, error) { return claimExp, nil })
	if !got.Equal(claimExp) {
		t.Fatalf("expected claim expiry, got %v", got)
	}

	got = TokenExpiry(now, 0, "t", func(string) (time.Time, error) { return time.Time{}, errors.New("bad") })
	if !got.IsZero() {
		t.Fatalf("expected unknown expiry, got %v", got)
	}
}

func baseTick(now time.Time) TickInput {
	return TickInput{
		Now:                  now,
		Authenticated:        true,
		LastActivity:         now,
		ExpiresAt:            now.Add(time.Hour),
		IdleTimeout:          30 * time.Minute,
		WarningThreshold:     5 * time.Minute,
		AutoRefreshThreshold: 2 * time.Minute,
	}
}

func TestEvaluateTick(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	in := baseTick(now)
	if d := EvaluateTick(in); d != (TickDecision{}) {
		t.Fatalf("expected no action, got %+v", d)
	}

	in = baseTick(now)
	in.LastActivity = now.Add(-31 * time.Minute)
	in.ExpiresAt = now.Add(time.Minute)
	if d := EvaluateTick(in); d != (TickDecision{Logout: true}) {
		t.Fatalf("expected idle logout only, got %+v", d)
	}

	in = baseTick(now)
	in.ExpiresAt = now.Add(4 * time.Minute)
	if d := EvaluateTick(in); !d.Warn || d.Refresh {
		t.Fatalf("expected warning only, got %+v", d)
	}
	in.WarningShown = true
	if d := EvaluateTick(in); d.Warn {
		t.Fatalf("warning must not repeat, got %+v", d)
	}

	in = baseTick(now)
	in.ExpiresAt = now.Add(90 * time.Second)
	if d := EvaluateTick(in); !d.Refresh || !d.Warn {
		t.Fatalf("expected warn and refresh, got %+v", d)
	}

	in = baseTick(now)
	in.ExpiresAt = now.Add(-time.Second)
	if d := EvaluateTick(in); d.Refresh {
		t.Fatalf("expired token must not auto refresh, got %+v", d)
	}

	in = baseTick(now)
	in.Authenticated = false
	in.LastActivity = now.Add(-time.Hour)
	if d := EvaluateTick(in); d != (TickDecision{}) {
		t.Fatalf("unauthenticated session must be ignored, got %+v", d)
	}
}

func TestExtendNeedsRefresh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	if !ExtendNeedsRefresh(now, now.Add(4*time.Minute), 5*time.Minute) {
		t.Fatal("expected refresh near expiry")
	}
	if ExtendNeedsRefresh(now, now.Add(20*time.Minute), 5*time.Minute) {
		t.Fatal("expected touch only far from expiry")
	}
	if ExtendNeedsRefresh(now, time.Time{}, 5*time.Minute) {
		t.Fatal("unknown expiry must not refresh")
	}
}

func TestRunCheckRunsInParallel(t *testing.T) {
	statusStarted := make(chan struct{})
	release := make(chan struct{})
	var warned atomic.Int32

	done := make(chan CheckResult, 1)
	go func() {
		done <- RunCheck(context.Background(), CheckDeps{
			FetchProfile: func(context.Context) error {
				<-statusStarted
				close(release)
				return nil
			},
			FetchStatus: func(context.Context) error {
				close(statusStarted)
				<-release
				return errors.New("status down")
			},
			Warn: func(string, ...any) { warned.Add(1) },
		})
	}()

	select {
	case res := <-done:
		if res.ProfileErr != nil {
			t.Fatalf("status failure leaked into profile result: %v", res.ProfileErr)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("fetches did not run in parallel")
	}
	if warned.Load() != 1 {
		t.Fatalf("expected one warning, got %d", warned.Load())
	}
}

func TestRunCheckProfileError(t *testing.T) {
	want := errors.New("401")
	res := RunCheck(context.Background(), CheckDeps{
		FetchProfile: func(context.Context) error { return want },
	})
	if !errors.Is(res.ProfileErr, want) {
		t.Fatalf("expected profile error, got %v", res.ProfileErr)
	}
}
