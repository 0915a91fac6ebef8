// File: internal/backup/backup.go
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/config"
)

const (
	backupExt = ".bak"
	metaExt   = ".meta.json"
	stampFmt  = "20060102T150405.000000000"
)

// ErrNoBackup is returned when no backup exists for a file.
var ErrNoBackup = errors.New("no backup found")

// Manager stores copies of files in a dedicated directory. Each copy has a
// JSON sidecar describing where it came from.
type Manager struct {
	dir      string
	maxAge   time.Duration
	maxCount int
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a Manager from the backup configuration.
func NewManager(cfg config.BackupConfig, logger *zap.Logger) *Manager {
	return &Manager{
		dir:      cfg.Dir,
		maxAge:   cfg.MaxAge,
		maxCount: cfg.MaxCount,
		logger:   logger.Named("backup"),
		now:      time.Now,
	}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// Create copies path into the backup directory. On any failure the partial
// copy is removed so that no unusable backup is left behind.
func (m *Manager) Create(path string) (*schemas.Backup, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read original: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	created := m.now().UTC()
	name := fmt.Sprintf("%s.%s.%s%s", filepath.Base(abs), pathKey(abs), created.Format(stampFmt), backupExt)
	b := &schemas.Backup{
		OriginalPath: abs,
		BackupPath:   filepath.Join(m.dir, name),
		CreatedAt:    created,
	}

	if err := WriteFileAtomic(b.BackupPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	meta, err := json.MarshalIndent(b, "", "  ")
	if err == nil {
		err = WriteFileAtomic(b.BackupPath+metaExt, meta, 0o644)
	}
	if err != nil {
		_ = os.Remove(b.BackupPath)
		return nil, fmt.Errorf("failed to write backup metadata: %w", err)
	}

	m.logger.Debug("Backup created.", zap.String("original", abs), zap.String("backup", b.BackupPath))
	return b, nil
}

// Restore writes the backup's content over its original path and confirms
// the result is byte-identical.
func (m *Manager) Restore(b schemas.Backup) error {
	data, err := os.ReadFile(b.BackupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(b.OriginalPath); err == nil {
		perm = info.Mode().Perm()
	}
	if err := WriteFileAtomic(b.OriginalPath, data, perm); err != nil {
		return fmt.Errorf("failed to restore %s: %w", b.OriginalPath, err)
	}
	m.logger.Info("File restored from backup.", zap.String("file", b.OriginalPath), zap.String("backup", b.BackupPath))
	return nil
}

// List returns every backup, newest first.
func (m *Manager) List() ([]schemas.Backup, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var backups []schemas.Backup
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			m.logger.Warn("Skipping unreadable backup metadata.", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		var b schemas.Backup
		if err := json.Unmarshal(data, &b); err != nil {
			m.logger.Warn("Skipping malformed backup metadata.", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		backups = append(backups, b)
	}
	sort.SliceStable(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

// Latest returns the newest backup of path.
func (m *Manager) Latest(path string) (*schemas.Backup, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, b := range backups {
		if b.OriginalPath == abs {
			b := b
			return &b, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoBackup, abs)
}

// Prune applies retention: per original file, backups older than maxAge or
// beyond the newest maxCount are deleted. Zero disables a bound.
func (m *Manager) Prune() (int, error) {
	backups, err := m.List()
	if err != nil {
		return 0, err
	}

	now := m.now()
	kept := make(map[string]int)
	removed := 0
	for _, b := range backups {
		expired := m.maxAge > 0 && now.Sub(b.CreatedAt) > m.maxAge
		overflow := m.maxCount > 0 && kept[b.OriginalPath] >= m.maxCount
		if !expired && !overflow {
			kept[b.OriginalPath]++
			continue
		}
		if err := m.remove(b); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("Pruned old backups.", zap.Int("removed", removed))
	}
	return removed, nil
}

func (m *Manager) remove(b schemas.Backup) error {
	for _, p := range []string{b.BackupPath, b.BackupPath + metaExt} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove backup %s: %w", p, err)
		}
	}
	return nil
}

// pathKey disambiguates files that share a base name.
func pathKey(abs string) string {
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:4])
}
