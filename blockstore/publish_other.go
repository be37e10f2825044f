//go:build !linux

package blockstore

import (
	"os"
)

func publishNoReplace(tmp, final string) error {
	return linkPublish(tmp, final)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	// some platforms refuse fsync on directories; the file itself is already synced
	if err := d.Sync(); err != nil && !os.IsPermission(err) {
		return err
	}
	return nil
}
