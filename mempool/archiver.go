package mempool

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	chainerrors "github.com/mezonai/blockarchive/errors"
	"github.com/mezonai/blockarchive/logx"
)

// Archiver moves consumed records from the pending directory to the archived one.
// It must only run after the block holding those records has been saved.
type Archiver struct {
	pendingDir  string
	archivedDir string
}

func NewArchiver(pendingDir, archivedDir string) *Archiver {
	return &Archiver{
		pendingDir:  pendingDir,
		archivedDir: archivedDir,
	}
}

// Archive moves each key in order. It keeps going after a failed move and reports
// the keys that stayed behind as PartialArchiveFailure, so a retry can pass exactly
// those. A key already in the archive and gone from pending counts as moved.
func (a *Archiver) Archive(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := os.MkdirAll(a.archivedDir, 0o755); err != nil {
		return chainerrors.NewError(chainerrors.ErrCodePartialArchiveFailure, "0 of %d records archived", len(keys)).
			WithStore(a.archivedDir).
			WithRemaining(keys).
			Wrap(errors.Wrapf(err, "create archive dir %s", a.archivedDir))
	}

	var (
		remaining []string
		causes    []error
		moved     int
	)
	for _, key := range keys {
		if err := a.move(key); err != nil {
			remaining = append(remaining, key)
			causes = append(causes, err)
			continue
		}
		moved++
	}

	a.syncDirs()

	if len(remaining) > 0 {
		logx.Error("ARCHIVER", "Archived ", moved, " of ", len(keys), " records, remaining: ", remaining)
		return chainerrors.NewError(chainerrors.ErrCodePartialArchiveFailure, "%d of %d records archived", moved, len(keys)).
			WithStore(a.archivedDir).
			WithRemaining(remaining).
			Wrap(stderrors.Join(causes...))
	}

	logx.Info("ARCHIVER", "Archived ", moved, " records into ", a.archivedDir)
	return nil
}

func (a *Archiver) move(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	src := filepath.Join(a.pendingDir, key)
	dst := filepath.Join(a.archivedDir, key)

	_, srcErr := os.Lstat(src)
	_, dstErr := os.Lstat(dst)
	switch {
	case srcErr != nil && !os.IsNotExist(srcErr):
		return errors.Wrapf(srcErr, "stat pending %s", key)
	case dstErr != nil && !os.IsNotExist(dstErr):
		return errors.Wrapf(dstErr, "stat archived %s", key)
	case os.IsNotExist(srcErr) && dstErr == nil:
		// moved by an earlier attempt
		return nil
	case os.IsNotExist(srcErr):
		return fmt.Errorf("pending record %s not found", key)
	case dstErr == nil:
		return fmt.Errorf("archived record %s already exists", key)
	}

	if err := os.Rename(src, dst); err != nil {
		return errors.Wrapf(err, "move %s", key)
	}
	return nil
}

func (a *Archiver) syncDirs() {
	for _, dir := range []string{a.archivedDir, a.pendingDir} {
		d, err := os.Open(dir)
		if err != nil {
			logx.Warn("ARCHIVER", "Failed to open ", dir, " for sync: ", err)
			continue
		}
		if err := d.Sync(); err != nil {
			logx.Warn("ARCHIVER", "Failed to sync ", dir, ": ", err)
		}
		_ = d.Close()
	}
}
