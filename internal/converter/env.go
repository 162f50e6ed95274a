package converter

import (
	"context"
	"fmt"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// CheckEnvironment verifies the JVM and the converter binary are
// installed and invocable by running each with a version flag. The
// probes run concurrently; the first failure wins and is wrapped as
// ErrEnvironmentUnavailable.
func (r *Runner) CheckEnvironment(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return probe(ctx, r.java(), "-version")
	})
	g.Go(func() error {
		return probe(ctx, r.bin(), "--version")
	})
	if err := g.Wait(); err != nil {
		return err
	}
	r.log().Debug("environment preflight passed", "java", r.java(), "converter", r.bin())
	return nil
}

func probe(ctx context.Context, bin string, versionFlag string) error {
	cmd := exec.CommandContext(ctx, bin, versionFlag)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s is not installed or not runnable: %v", ErrEnvironmentUnavailable, bin, err)
	}
	return nil
}
