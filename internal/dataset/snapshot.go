package dataset

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ecommerce-dashboard/internal/models"
)

const snapshotVersion = "v2"

type snapshot struct {
	Rows    []models.FactRow
	SavedAt time.Time
}

func (l *Loader) snapshotFilename(source string) string {
	dir := l.opts.SnapshotDir
	if dir == "" {
		dir = ".cache"
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(source)
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", name, snapshotVersion))
}

// fromSnapshot returns cached rows when the snapshot is newer than the source.
func (l *Loader) fromSnapshot(source string) ([]models.FactRow, bool) {
	modTime, err := fileModTime(source)
	if err != nil {
		return nil, false
	}

	file, err := os.Open(l.snapshotFilename(source))
	if err != nil {
		return nil, false
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		l.logger.Debug("discarding unreadable snapshot", "error", err)
		return nil, false
	}
	if !modTime.Before(snap.SavedAt) || len(snap.Rows) == 0 {
		return nil, false
	}
	return snap.Rows, true
}

func (l *Loader) saveSnapshot(source string, rows []models.FactRow) error {
	filename := l.snapshotFilename(source)
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snapshot{Rows: rows, SavedAt: time.Now()})
}
