package git

import (
	"context"
	"fmt"
)

// RestoreReport tracks how the working copy was put back after a merge attempt.
type RestoreReport struct {
	Revision string

	CheckedOut bool
	CleanedUp  bool

	CheckoutError error
	CleanupError  error
}

// Success returns true if both steps completed.
func (r *RestoreReport) Success() bool {
	return r.CheckedOut && r.CleanedUp
}

// FirstError returns the first error encountered, or nil if all succeeded.
func (r *RestoreReport) FirstError() error {
	if r.CheckoutError != nil {
		return r.CheckoutError
	}
	return r.CleanupError
}

// Restore force-checks out revision and then runs cleanup, typically deleting the
// temporary branches of a merge strategy.
//
// The checkout is critical: when it fails cleanup is skipped, since git refuses to
// delete the branch that is still checked out. Cleanup failures are only reported.
func (c *Client) Restore(ctx context.Context, revision string, cleanup func(context.Context) error) *RestoreReport {
	report := &RestoreReport{Revision: revision}

	if _, err := c.Run(ctx, "checkout", "-f", revision); err != nil {
		report.CheckoutError = fmt.Errorf(
			"failed to restore %s: %w\n\n"+
				"Run git checkout -f %s to get back to where you started",
			revision, err, revision)
		return report
	}
	report.CheckedOut = true

	if cleanup == nil {
		report.CleanedUp = true
		return report
	}

	if err := cleanup(ctx); err != nil {
		report.CleanupError = fmt.Errorf("failed to clean up temporary branches: %w", err)
		c.log.Warn("Cleanup of temporary branches failed")
	} else {
		report.CleanedUp = true
	}

	return report
}
