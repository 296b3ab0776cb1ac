package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

type keyAction int

const (
	actionIgnore keyAction = iota
	actionKey
	actionClose
)

// translateKey maps a raw terminal byte to a window action.
func translateKey(b byte) (types.Key, keyAction) {
	switch {
	case b == 'q', b == 0x03, b == 0x1b: // q, Ctrl-C, Esc
		return 0, actionClose
	case b >= 0x20 && b < 0x7f:
		return types.Key(b), actionKey
	default:
		return 0, actionIgnore
	}
}

// forwardKeyboard puts the terminal in raw mode and forwards key presses
// to in until ctx is done. The returned func restores the terminal.
func forwardKeyboard(ctx context.Context, tty *os.File, in *window.Input) (func(), error) {
	fd := int(tty.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to make raw terminal: %w", err)
	}

	// The read blocks until a key arrives; the goroutine ends with the process.
	go func() {
		buf := make([]byte, 16)
		for {
			n, err := tty.Read(buf)
			if err != nil {
				return
			}
			if ctx.Err() != nil {
				return
			}
			for _, b := range buf[:n] {
				key, action := translateKey(b)
				switch action {
				case actionClose:
					slog.Info("keyboard: close requested")
					in.RequestClose()
					return
				case actionKey:
					in.Key(key)
				}
			}
		}
	}()

	return func() {
		if err := term.Restore(fd, state); err != nil {
			slog.Warn("keyboard: failed to restore terminal", "error", err)
		}
	}, nil
}
