package session

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pagewright/internal/config"
)

// Seeder preloads a fresh session's recent files from the workspace, so
// anaphoric references work before the session has produced anything.
type Seeder struct {
	root     string
	pagesDir string
	limit    int
	logger   *zap.Logger
}

// NewSeeder creates a seeder rooted at the workspace directory.
func NewSeeder(root string, cfg *config.Config, logger *zap.Logger) *Seeder {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.Session.SeedLimit
	if limit < 1 {
		limit = 20
	}
	return &Seeder{
		root:     root,
		pagesDir: cfg.Router.PagesDir,
		limit:    limit,
		logger:   logger,
	}
}

type seedFile struct {
	rel string
	mod time.Time
}

// Seed scans the canonical pages folder and the workspace root in parallel
// and returns page identifiers, most recently modified first, capped at the
// seed limit. Missing directories are not errors.
func (s *Seeder) Seed(ctx context.Context) ([]string, error) {
	var fromPages, fromRoot []seedFile

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fromPages, err = scanPages(gctx, filepath.Join(s.root, s.pagesDir), s.pagesDir)
		return err
	})
	g.Go(func() error {
		var err error
		fromRoot, err = scanPages(gctx, s.root, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := append(fromPages, fromRoot...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].mod.After(merged[j].mod)
	})

	out := make([]string, 0, len(merged))
	for _, f := range merged {
		out = append(out, f.rel)
		if len(out) == s.limit {
			break
		}
	}

	s.logger.Debug("Seeded session files",
		zap.Int("found", len(merged)),
		zap.Int("kept", len(out)))
	return out, nil
}

// scanPages lists the .html files directly inside dir. Identifiers are
// prefix-joined with forward slashes to match resource naming.
func scanPages(ctx context.Context, dir, prefix string) ([]seedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	files := make([]seedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".html") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		rel := entry.Name()
		if prefix != "" {
			rel = path.Join(prefix, entry.Name())
		}
		files = append(files, seedFile{rel: rel, mod: info.ModTime()})
	}
	return files, nil
}
