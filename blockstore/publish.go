package blockstore

import (
	"os"

	"github.com/mezonai/blockarchive/logx"
)

var (
	removeFile   = os.Remove
	syncBlockDir = syncDir
)

// linkPublish makes final a second name of tmp, which fails if final exists, then
// drops the staging name. Once the link exists the block is published, so a
// leftover staging file is only logged; scans skip dot-files.
func linkPublish(tmp, final string) error {
	if err := os.Link(tmp, final); err != nil {
		return err
	}
	if err := removeFile(tmp); err != nil {
		logx.Warn("BLOCKSTORE", "Failed to remove staging file ", tmp, ": ", err)
	}
	return nil
}
