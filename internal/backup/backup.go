// Package backup creates and restores point-in-time copies of the SQLite
// graph database, with integrity verification and simple pruning.
package backup

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const filePrefix = "foiagraph-"

// Info describes one stored backup.
type Info struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Size      int64     `json:"size"`
}

// Service manages backups of one database file in one directory.
type Service struct {
	dbPath string
	dir    string
}

// NewService creates a backup service for the database at dbPath,
// storing backups under dir.
func NewService(dbPath, dir string) (*Service, error) {
	if dbPath == "" || dir == "" {
		return nil, fmt.Errorf("backup: database path and backup directory are required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create directory: %w", err)
	}
	return &Service{dbPath: dbPath, dir: dir}, nil
}

// Create takes a consistent snapshot of the live database. VACUUM INTO
// produces a correct copy even with WAL mode active, so the engine can
// keep committing while the backup runs. The snapshot is verified before
// it is reported.
func (s *Service) Create() (*Info, error) {
	start := time.Now()
	dest := filepath.Join(s.dir, filePrefix+start.UTC().Format("20060102-150405")+".db")

	src, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", s.dbPath))
	if err != nil {
		return nil, fmt.Errorf("backup: open source: %w", err)
	}
	defer src.Close()
	if err := src.Ping(); err != nil {
		return nil, fmt.Errorf("backup: source unreachable: %w", err)
	}

	if _, err := src.Exec(fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return nil, fmt.Errorf("backup: snapshot: %w", err)
	}

	if err := verify(dest); err != nil {
		os.Remove(dest)
		return nil, err
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}
	log.Printf("backup: wrote %s (%d bytes) in %v", dest, stat.Size(), time.Since(start).Round(time.Millisecond))
	return &Info{Path: dest, Timestamp: start.UTC(), Size: stat.Size()}, nil
}

// Restore replaces the database file with a verified backup. The engine
// must not be running against the target.
func (s *Service) Restore(backupPath string) error {
	if err := verify(backupPath); err != nil {
		return err
	}

	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", backupPath, err)
	}
	defer src.Close()

	dst, err := os.Create(s.dbPath)
	if err != nil {
		return fmt.Errorf("backup: create target: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("backup: copy: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("backup: sync target: %w", err)
	}

	// Stale WAL sidecars would shadow the restored content.
	os.Remove(s.dbPath + "-wal")
	os.Remove(s.dbPath + "-shm")

	if err := verify(s.dbPath); err != nil {
		return fmt.Errorf("backup: restored database failed verification: %w", err)
	}
	log.Printf("backup: restored %s from %s", s.dbPath, backupPath)
	return nil
}

// List returns stored backups, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".db") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".db")
		ts, err := time.Parse("20060102-150405", stamp)
		if err != nil {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{
			Path:      filepath.Join(s.dir, name),
			Timestamp: ts,
			Size:      fi.Size(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Timestamp.After(infos[j].Timestamp) })
	return infos, nil
}

// Prune deletes all but the keep newest backups.
func (s *Service) Prune(keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("backup: keep must be at least 1")
	}
	infos, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, info := range infos[min(keep, len(infos)):] {
		if err := os.Remove(info.Path); err != nil {
			return removed, fmt.Errorf("backup: prune %s: %w", info.Path, err)
		}
		removed++
	}
	if removed > 0 {
		log.Printf("backup: pruned %d old backups", removed)
	}
	return removed, nil
}

// verify opens a database file read-only and runs the integrity check.
func verify(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", path, err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check of %s: %w", path, err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: %s failed integrity check: %s", path, result)
	}
	return nil
}
