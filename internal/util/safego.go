package util

import (
	"runtime/debug"

	"github.com/valory-xyz/triton-bot/internal/logging"
)

// SafeGo runs fn in a goroutine with panic recovery, tagging log
// output with a name so the failing routine can be identified.
// A panicking background routine must not take the bot down with it.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Recovered from panic in goroutine",
					"goroutine", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
