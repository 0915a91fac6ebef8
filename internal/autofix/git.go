// File: internal/autofix/git.go
package autofix

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/internal/config"
)

// GitCommitter commits verified fixes to the repository containing the
// project root. Only the healed file is staged.
type GitCommitter struct {
	logger *zap.Logger
	repo   *git.Repository
	root   string
	author string
	email  string
	now    func() time.Time
}

// NewGitCommitter opens the repository at or above projectRoot.
func NewGitCommitter(projectRoot string, cfg config.GitConfig, logger *zap.Logger) (*GitCommitter, error) {
	repo, err := git.PlainOpenWithOptions(projectRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", projectRoot, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository has no worktree: %w", err)
	}
	return &GitCommitter{
		logger: logger.Named("git"),
		repo:   repo,
		root:   wt.Filesystem.Root(),
		author: cfg.AuthorName,
		email:  cfg.AuthorEmail,
		now:    time.Now,
	}, nil
}

// Commit stages file and records a commit. It returns the commit hash.
func (g *GitCommitter) Commit(ctx context.Context, file, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", file, err)
	}
	rel, err := filepath.Rel(g.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside the repository %s", file, g.root)
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", rel, err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.author,
			Email: g.email,
			When:  g.now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit %s: %w", rel, err)
	}

	g.logger.Info("Committed verified fix.", zap.String("file", rel), zap.String("commit", hash.String()))
	return hash.String(), nil
}
