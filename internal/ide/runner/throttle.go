package runner

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/forgeide/forgeide/internal/ide/contracts"
)

// Runner wraps Run with an optional rate limiter throttling how often
// concurrent subprocesses may be launched — useful when a build pipeline
// fans out many verification commands against a single workspace and wants
// to avoid saturating the host.
type Runner struct {
	Limiter *rate.Limiter
}

// New constructs a Runner. A nil limiter disables throttling.
func New(limiter *rate.Limiter) *Runner {
	return &Runner{Limiter: limiter}
}

// Run waits on the limiter (if configured) before delegating to the
// package-level Run function.
func (r *Runner) Run(ctx context.Context, command string, timeoutSec int, cwd string, env map[string]string, allowedPrefixes []string) (contracts.RunResult, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return contracts.RunResult{}, err
		}
	}
	return Run(command, timeoutSec, cwd, env, allowedPrefixes)
}
