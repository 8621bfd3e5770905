package hotkey

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"

	"floating-dictionary/src/logutil"
)

// Listen registers the global hotkey and calls callback each time the whole
// combination is held down. It returns once the hook is running; the hook
// stops when ctx is cancelled.
func Listen(ctx context.Context, hotkeyConfig string, callback func()) error {
	logger := logutil.Component("hotkey")

	c, err := newCombo(hotkeyConfig)
	if err != nil {
		return err
	}
	logger.Info().Str("hotkey", hotkeyConfig).Strs("keys", c.names()).Msg("hotkey listener configured")

	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("global keyboard hook unavailable")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Msg("hotkey goroutine panicked")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				gohook.End()
				return
			case ev, ok := <-evChan:
				if !ok {
					logger.Warn().Msg("event channel closed")
					return
				}
				fired := false
				switch ev.Kind {
				case gohook.KeyDown:
					fired = c.press(ev.Rawcode)
				case gohook.KeyUp:
					c.release(ev.Rawcode)
				}
				if fired && callback != nil {
					logger.Info().Str("hotkey", hotkeyConfig).Msg("hotkey activated")
					callback()
				}
			}
		}
	}()
	return nil
}

// combo tracks which keys of one combination are held.
type combo struct {
	mu   sync.Mutex
	keys []comboKey
}

type comboKey struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

func newCombo(hotkeyConfig string) (*combo, error) {
	c := &combo{}
	for _, name := range parseHotkey(hotkeyConfig) {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", hotkeyConfig, name)
		}
		c.keys = append(c.keys, comboKey{name: name, rawcodes: rawcodes})
	}
	if len(c.keys) == 0 {
		return nil, fmt.Errorf("hotkey %q has no keys", hotkeyConfig)
	}
	return c, nil
}

func (c *combo) names() []string {
	names := make([]string, len(c.keys))
	for i, k := range c.keys {
		names[i] = k.name
	}
	return names
}

// press records a key down and reports whether the combination is now
// complete. Completing it resets the state so holding the keys fires once.
func (c *combo) press(rawcode uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(rawcode, true)
	for _, k := range c.keys {
		if !k.pressed {
			return false
		}
	}
	for i := range c.keys {
		c.keys[i].pressed = false
	}
	return true
}

func (c *combo) release(rawcode uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(rawcode, false)
}

func (c *combo) set(rawcode uint16, pressed bool) {
	for i := range c.keys {
		for _, rc := range c.keys[i].rawcodes {
			if rc == rawcode {
				c.keys[i].pressed = pressed
				break
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+t" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super", "meta":
			keys = append(keys, "super")
		case "escape":
			keys = append(keys, "esc")
		case "return":
			keys = append(keys, "enter")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

// X11 keysyms as reported in gohook rawcodes on Linux.
const (
	xkShiftL   = 0xffe1
	xkShiftR   = 0xffe2
	xkControlL = 0xffe3
	xkControlR = 0xffe4
	xkAltL     = 0xffe9
	xkAltR     = 0xffea
	xkSuperL   = 0xffeb
	xkSuperR   = 0xffec
	xkF1       = 0xffbe
	xkReturn   = 0xff0d
	xkEscape   = 0xff1b
	xkTab      = 0xff09
	xkLeft     = 0xff51
	xkUp       = 0xff52
	xkRight    = 0xff53
	xkDown     = 0xff54
)

// keyNameToRawcodes maps a key name to its keysyms. Modifiers return both
// sides; letters return the lower and upper case keysym since Shift changes
// the reported symbol.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	switch keyName {
	case "ctrl":
		return []uint16{xkControlL, xkControlR}
	case "alt":
		return []uint16{xkAltL, xkAltR}
	case "shift":
		return []uint16{xkShiftL, xkShiftR}
	case "super":
		return []uint16{xkSuperL, xkSuperR}
	case "space":
		return []uint16{' '}
	case "enter":
		return []uint16{xkReturn}
	case "esc":
		return []uint16{xkEscape}
	case "tab":
		return []uint16{xkTab}
	case "left":
		return []uint16{xkLeft}
	case "up":
		return []uint16{xkUp}
	case "right":
		return []uint16{xkRight}
	case "down":
		return []uint16{xkDown}
	}

	if len(keyName) == 1 {
		ch := keyName[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16(ch), uint16(ch - 'a' + 'A')}
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch)}
		}
	}

	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(xkF1 + n - 1)}
		}
	}

	return nil
}
