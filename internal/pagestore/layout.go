package pagestore

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	backupDirName = "backups"
	backupPrefix  = "backup_"
	backupExt     = ".db"
	stampLayout   = "20060102_150405"
)

// layout names the files that belong to one store.
//
//	<dir>/<name>.db             store file
//	<dir>/<name>.meta.yaml      control metadata
//	<dir>/.<name>.recovery      recovery-in-progress flag
//	<dir>/backups/backup_*.db   timestamped full copies
type layout struct {
	store  string
	memory bool
}

func newLayout(path string) layout {
	if path == "" || path == ":memory:" {
		return layout{store: ":memory:", memory: true}
	}
	return layout{store: path}
}

func (l layout) dir() string { return filepath.Dir(l.store) }

func (l layout) name() string {
	base := filepath.Base(l.store)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l layout) metaFile() string {
	return filepath.Join(l.dir(), l.name()+".meta.yaml")
}

func (l layout) flagFile() string {
	return filepath.Join(l.dir(), "."+l.name()+".recovery")
}

func (l layout) backupDir() string {
	return filepath.Join(l.dir(), backupDirName)
}

// sidecars are the journal files SQLite keeps next to the store.
func (l layout) sidecars() []string {
	return []string{l.store + "-wal", l.store + "-shm", l.store + "-journal"}
}

func (l layout) corruptedPath(now time.Time) string {
	return filepath.Join(l.dir(), l.name()+".corrupted_"+now.Format(stampLayout)+backupExt)
}

func backupName(now time.Time) string {
	return backupPrefix + now.Format(stampLayout) + backupExt
}
