//go:build linux

package blockstore

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// publishNoReplace renames tmp to final, failing with an os.ErrExist-matching error
// when final already exists. Filesystems without RENAME_NOREPLACE fall back to a
// hard link.
func publishNoReplace(tmp, final string) error {
	err := unix.Renameat2(unix.AT_FDCWD, tmp, unix.AT_FDCWD, final, unix.RENAME_NOREPLACE)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EOPNOTSUPP) {
		return linkPublish(tmp, final)
	}
	return &os.LinkError{Op: "renameat2", Old: tmp, New: final, Err: err}
}

func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return &os.PathError{Op: "open", Path: dir, Err: err}
	}
	defer unix.Close(fd)

	if err := unix.Fsync(fd); err != nil {
		return &os.PathError{Op: "fsync", Path: dir, Err: err}
	}
	return nil
}
