package flows

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CheckDeps captures the two fetches run by a cold check.
type CheckDeps struct {
	FetchProfile func(context.Context) error
	FetchStatus  func(context.Context) error
	Warn         func(string, ...any)
}

// CheckResult reports the profile outcome. Status failures are logged and
// never reported.
type CheckResult struct {
	ProfileErr error
}

// RunCheck fetches the profile and the account status in parallel. A status
// failure never cancels or fails the profile fetch.
func RunCheck(ctx context.Context, deps CheckDeps) CheckResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	var g errgroup.Group
	g.Go(func() error {
		return deps.FetchProfile(ctx)
	})
	if deps.FetchStatus != nil {
		g.Go(func() error {
			if err := deps.FetchStatus(ctx); err != nil {
				deps.Warn("goSession: account status fetch during check failed: %v", err)
			}
			return nil
		})
	}
	return CheckResult{ProfileErr: g.Wait()}
}
