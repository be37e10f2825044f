package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/blockarchive/cmd"
	"github.com/mezonai/blockarchive/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("ARCHIVER CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
