package exception

import (
	"runtime/debug"

	"github.com/mezonai/blockarchive/logx"
	"github.com/mezonai/blockarchive/monitoring"
)

// SafeGo runs fn on a new goroutine, logging and counting a panic instead of
// crashing the process.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", "Panic in: ", name, " ", r, "\n", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
