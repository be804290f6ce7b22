package scan

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/beevans/integrated-manager-for-lustre/internal/cache"
)

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) error
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (ExecRunner) LookPath(name string) error {
	_, err := exec.LookPath(name)
	return err
}

// CachedRunner remembers command output for the lifetime of its cache.
type CachedRunner struct {
	Runner
	cache *cache.Cache[[]byte]
}

func NewCachedRunner(r Runner, c *cache.Cache[[]byte]) *CachedRunner {
	return &CachedRunner{Runner: r, cache: c}
}

func (r *CachedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	key := name + " " + strings.Join(args, " ")
	return r.cache.Fetch(key, func() ([]byte, error) {
		return r.Runner.Run(ctx, name, args...)
	})
}

// Invalidate drops all cached output.
func (r *CachedRunner) Invalidate() {
	r.cache.Clear()
}
