package gfx

import (
	"strconv"
	"strings"
)

// Key is a keyboard key code. Values follow the GLFW numbering used by the
// native library so backends can pass them through.
type Key int32

const (
	KeyNull       Key = 0
	KeySpace      Key = 32
	KeyApostrophe Key = 39
	KeyComma      Key = 44
	KeyMinus      Key = 45
	KeyPeriod     Key = 46
	KeySlash      Key = 47
	KeyZero       Key = 48
	KeySemicolon  Key = 59
	KeyEqual      Key = 61
	KeyA          Key = 65
	KeyEscape     Key = 256
	KeyEnter      Key = 257
	KeyTab        Key = 258
	KeyBackspace  Key = 259
	KeyInsert     Key = 260
	KeyDelete     Key = 261
	KeyRight      Key = 262
	KeyLeft       Key = 263
	KeyDown       Key = 264
	KeyUp         Key = 265
	KeyPageUp     Key = 266
	KeyPageDown   Key = 267
	KeyHome       Key = 268
	KeyEnd        Key = 269
	KeyF1         Key = 290
	KeyF5         Key = 294
	KeyLeftShift  Key = 340
	KeyLeftCtrl   Key = 341
	KeyLeftAlt    Key = 342
	KeyRightShift Key = 344
	KeyRightCtrl  Key = 345
	KeyRightAlt   Key = 346
)

var keyNames = map[string]Key{
	"space":      KeySpace,
	"apostrophe": KeyApostrophe,
	"comma":      KeyComma,
	"minus":      KeyMinus,
	"period":     KeyPeriod,
	"slash":      KeySlash,
	"semicolon":  KeySemicolon,
	"equal":      KeyEqual,
	"escape":     KeyEscape,
	"enter":      KeyEnter,
	"tab":        KeyTab,
	"backspace":  KeyBackspace,
	"insert":     KeyInsert,
	"delete":     KeyDelete,
	"right":      KeyRight,
	"left":       KeyLeft,
	"down":       KeyDown,
	"up":         KeyUp,
	"pageup":     KeyPageUp,
	"pagedown":   KeyPageDown,
	"home":       KeyHome,
	"end":        KeyEnd,
	"leftshift":  KeyLeftShift,
	"leftctrl":   KeyLeftCtrl,
	"leftalt":    KeyLeftAlt,
	"rightshift": KeyRightShift,
	"rightctrl":  KeyRightCtrl,
	"rightalt":   KeyRightAlt,
}

func init() {
	for i := 0; i < 26; i++ {
		keyNames[string(rune('a'+i))] = KeyA + Key(i)
	}
	for i := 0; i < 10; i++ {
		keyNames[strconv.Itoa(i)] = KeyZero + Key(i)
	}
	for i := 1; i <= 12; i++ {
		keyNames["f"+strconv.Itoa(i)] = KeyF1 + Key(i-1)
	}
}

// KeyByName resolves a key name such as "A", "space", "F5" or "LeftShift".
// Matching ignores case, '_' and '-'.
func KeyByName(name string) (Key, bool) {
	n := strings.ToLower(name)
	n = strings.NewReplacer("_", "", "-", "").Replace(n)
	k, ok := keyNames[n]
	return k, ok
}
