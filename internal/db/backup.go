package db

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Backup copies the database file to dest. The WAL is checkpointed first so
// the copy is self-contained.
func (db *DB) Backup(dest string) error {
	if _, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint before backup: %w", err)
	}

	source, err := os.Open(db.path)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}
	return destination.Sync()
}

// CleanupBackups removes backup files in dir older than retention. Returns
// the number of files deleted.
func (db *DB) CleanupBackups(dir string, retention time.Duration) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	deleted := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, file.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
