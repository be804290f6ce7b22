// Package scan builds the local host's device tree from the block, RAID, LVM,
// multipath and ZFS tooling installed on it.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/beevans/integrated-manager-for-lustre/internal/cache"
	"github.com/beevans/integrated-manager-for-lustre/internal/config"
	"github.com/beevans/integrated-manager-for-lustre/internal/device"
	"github.com/beevans/integrated-manager-for-lustre/internal/logger"
)

// ErrNoSource is returned when no enabled source can produce a tree.
var ErrNoSource = errors.New("no usable scan source")

type Option func(*Scanner)

// WithRunner replaces the command runner. Output is still cached.
func WithRunner(r Runner) Option {
	return func(s *Scanner) { s.base = r }
}

func WithSources(sources []string) Option {
	return func(s *Scanner) {
		s.sources = make(map[string]bool, len(sources))
		for _, src := range sources {
			s.sources[src] = true
		}
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Scanner) { s.ttl = ttl }
}

func WithLogger(log logger.Logger) Option {
	return func(s *Scanner) { s.log = log }
}

// WithResolver sets how device symlinks (/dev/md/name, /dev/mapper/...) are
// resolved to kernel device paths.
func WithResolver(fn func(string) string) Option {
	return func(s *Scanner) { s.resolve = fn }
}

// WithBlockInfo replaces the ghw block device lookup.
func WithBlockInfo(fn BlockInfoFunc) Option {
	return func(s *Scanner) { s.blockInfo = fn }
}

// WithSysfs sets the view of /sys used when lsblk reports a disk with no
// serial or WWN. nil disables the lookup.
func WithSysfs(fsys fs.FS) Option {
	return func(s *Scanner) { s.sysfs = fsys }
}

type Scanner struct {
	base      Runner
	runner    *CachedRunner
	sources   map[string]bool
	ttl       time.Duration
	resolve   func(string) string
	blockInfo BlockInfoFunc
	sysfs     fs.FS
	log       logger.Logger
}

func New(opts ...Option) *Scanner {
	s := &Scanner{
		base:      ExecRunner{},
		ttl:       config.Default().Scan.CacheTTL,
		resolve:   evalSymlinks,
		blockInfo: ghwBlockInfo,
		sysfs:     os.DirFS("/sys"),
		log:       logger.Discard(),
	}
	WithSources(config.Default().Scan.Sources)(s)
	for _, opt := range opts {
		opt(s)
	}
	s.runner = NewCachedRunner(s.base, cache.New[[]byte](s.ttl))
	return s
}

// FromConfig returns a Scanner for the scan section of cfg.
func FromConfig(cfg *config.Config, log logger.Logger, opts ...Option) *Scanner {
	base := []Option{
		WithSources(cfg.Scan.Sources),
		WithCacheTTL(cfg.Scan.CacheTTL),
		WithLogger(log),
	}
	return New(append(base, opts...)...)
}

// Invalidate forces the next Scan to rerun every command.
func (s *Scanner) Invalidate() {
	s.runner.Invalidate()
}

// Scan returns the local device tree. lsblk provides the block hierarchy;
// the other sources attach identities and virtual devices to it. Without
// lsblk, disks and partitions come from ghw.
func (s *Scanner) Scan(ctx context.Context) (device.Device, error) {
	if s.sources[config.SourceLsblk] && s.runner.LookPath("lsblk") == nil {
		out, err := s.runner.Run(ctx, "lsblk", lsblkArgs...)
		if err != nil {
			return nil, err
		}
		devs, err := parseLsblk(out)
		if err != nil {
			return nil, fmt.Errorf("failed to parse lsblk output: %w", err)
		}

		b := &builder{inv: s.inventory(ctx), resolve: s.resolve, sysfs: s.sysfs}
		tree := b.root(devs)
		s.log.Debug("Scanned devices", "source", config.SourceLsblk, "nodes", device.Count(tree))
		return tree, nil
	}

	if s.sources[config.SourceGHW] || s.sources[config.SourceLsblk] {
		info, err := s.blockInfo()
		if err != nil {
			return nil, fmt.Errorf("failed to get block devices: %w", err)
		}
		tree := treeFromBlockInfo(info)
		s.log.Debug("Scanned devices", "source", config.SourceGHW, "nodes", device.Count(tree))
		return tree, nil
	}

	return nil, ErrNoSource
}

// run executes an optional source. A missing tool or a failing command
// yields nil output so the scan continues without it.
func (s *Scanner) run(ctx context.Context, source, name string, args ...string) []byte {
	if !s.sources[source] {
		return nil
	}
	if err := s.runner.LookPath(name); err != nil {
		s.log.Trace("Tool not installed", "tool", name)
		return nil
	}
	out, err := s.runner.Run(ctx, name, args...)
	if err != nil {
		s.log.Warning("Source failed", "source", source, "err", err.Error())
		return nil
	}
	return out
}

func (s *Scanner) inventory(ctx context.Context) *inventory {
	inv := newInventory()

	if out := s.run(ctx, config.SourceMdadm, "mdadm", mdadmArgs...); out != nil {
		for _, arr := range parseMdadmScan(out) {
			inv.mdUUIDs[s.resolve(arr.Device)] = arr.UUID
			inv.mdUUIDs[arr.Device] = arr.UUID
		}
	}

	if out := s.run(ctx, config.SourceLsblk, "dmsetup", dmsetupArgs...); out != nil {
		inv.mpaths = parseDmsetup(out)
	}

	if out := s.run(ctx, config.SourceLVM, "vgs", vgsArgs...); out != nil {
		vgs, err := parseVGs(out)
		if err != nil {
			s.log.Warning("Failed to parse vgs output", "err", err.Error())
		} else {
			inv.vgs = vgs
		}
	}
	if out := s.run(ctx, config.SourceLVM, "lvs", lvsArgs...); out != nil {
		lvs, err := parseLVs(out)
		if err != nil {
			s.log.Warning("Failed to parse lvs output", "err", err.Error())
		}
		for _, lv := range lvs {
			for _, p := range []string{lv.DmPath, lv.Path, s.resolve(lv.Path)} {
				if p != "" {
					inv.lvs[p] = lv
				}
			}
		}
	}

	if out := s.run(ctx, config.SourceZFS, "zpool", zpoolGetArgs...); out != nil {
		inv.pools = parseZpoolGet(out)
		if status := s.run(ctx, config.SourceZFS, "zpool", zpoolStatusArgs...); status != nil {
			for path, name := range parseZpoolStatus(status) {
				inv.members[path] = name
				inv.members[s.resolve(path)] = name
			}
		}
		if datasets := s.run(ctx, config.SourceZFS, "zfs", zfsGetArgs...); datasets != nil {
			inv.datasets = parseZfsGet(datasets)
		}
	}

	return inv
}

func evalSymlinks(path string) string {
	if path == "" {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}
