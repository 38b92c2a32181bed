package schema

// SessionID identifies a session for logging and event routing.
type SessionID string

// SessionState describes the lifecycle of a session.
type SessionState string

const (
	// StateStarting indicates the engine process is spawning.
	StateStarting SessionState = "starting"
	// StateRunning indicates the engine answered the startup handshake.
	StateRunning SessionState = "running"
	// StateTargetExited indicates the target command finished while the
	// engine itself is still alive.
	StateTargetExited SessionState = "target_exited"
	// StateExiting indicates shutdown is in progress.
	StateExiting SessionState = "exiting"
	// StateExited indicates both processes are confirmed terminated.
	StateExited SessionState = "exited"
	// StateFailed indicates an unrecoverable spawn or protocol error.
	StateFailed SessionState = "failed"
)

// Terminal reports whether no further operations are possible.
func (s SessionState) Terminal() bool {
	return s == StateExited || s == StateFailed
}

// KeyName identifies a named special key.
type KeyName string

// Named keys recognized by the key encoder.
const (
	KeyEnter      KeyName = "Enter"
	KeyEscape     KeyName = "Escape"
	KeyTab        KeyName = "Tab"
	KeySpace      KeyName = "Space"
	KeyBackspace  KeyName = "Backspace"
	KeyDelete     KeyName = "Delete"
	KeyInsert     KeyName = "Insert"
	KeyArrowUp    KeyName = "ArrowUp"
	KeyArrowDown  KeyName = "ArrowDown"
	KeyArrowLeft  KeyName = "ArrowLeft"
	KeyArrowRight KeyName = "ArrowRight"
	KeyHome       KeyName = "Home"
	KeyEnd        KeyName = "End"
	KeyPageUp     KeyName = "PageUp"
	KeyPageDown   KeyName = "PageDown"
	KeyF1         KeyName = "F1"
	KeyF2         KeyName = "F2"
	KeyF3         KeyName = "F3"
	KeyF4         KeyName = "F4"
	KeyF5         KeyName = "F5"
	KeyF6         KeyName = "F6"
	KeyF7         KeyName = "F7"
	KeyF8         KeyName = "F8"
	KeyF9         KeyName = "F9"
	KeyF10        KeyName = "F10"
	KeyF11        KeyName = "F11"
	KeyF12        KeyName = "F12"
	KeyCtrlA      KeyName = "CtrlA"
	KeyCtrlB      KeyName = "CtrlB"
	KeyCtrlC      KeyName = "CtrlC"
	KeyCtrlD      KeyName = "CtrlD"
	KeyCtrlE      KeyName = "CtrlE"
	KeyCtrlF      KeyName = "CtrlF"
	KeyCtrlG      KeyName = "CtrlG"
	KeyCtrlH      KeyName = "CtrlH"
	KeyCtrlK      KeyName = "CtrlK"
	KeyCtrlL      KeyName = "CtrlL"
	KeyCtrlN      KeyName = "CtrlN"
	KeyCtrlP      KeyName = "CtrlP"
	KeyCtrlR      KeyName = "CtrlR"
	KeyCtrlU      KeyName = "CtrlU"
	KeyCtrlW      KeyName = "CtrlW"
	KeyCtrlX      KeyName = "CtrlX"
	KeyCtrlZ      KeyName = "CtrlZ"
)

// keyWire maps a named key to the token the engine understands.
var keyWire = map[KeyName]string{
	KeyEnter:      "Enter",
	KeyEscape:     "Escape",
	KeyTab:        "Tab",
	KeySpace:      "Space",
	KeyBackspace:  "Backspace",
	KeyDelete:     "Delete",
	KeyInsert:     "Insert",
	KeyArrowUp:    "Up",
	KeyArrowDown:  "Down",
	KeyArrowLeft:  "Left",
	KeyArrowRight: "Right",
	KeyHome:       "Home",
	KeyEnd:        "End",
	KeyPageUp:     "PageUp",
	KeyPageDown:   "PageDown",
	KeyF1:         "F1",
	KeyF2:         "F2",
	KeyF3:         "F3",
	KeyF4:         "F4",
	KeyF5:         "F5",
	KeyF6:         "F6",
	KeyF7:         "F7",
	KeyF8:         "F8",
	KeyF9:         "F9",
	KeyF10:        "F10",
	KeyF11:        "F11",
	KeyF12:        "F12",
	KeyCtrlA:      "C-a",
	KeyCtrlB:      "C-b",
	KeyCtrlC:      "C-c",
	KeyCtrlD:      "C-d",
	KeyCtrlE:      "C-e",
	KeyCtrlF:      "C-f",
	KeyCtrlG:      "C-g",
	KeyCtrlH:      "C-h",
	KeyCtrlK:      "C-k",
	KeyCtrlL:      "C-l",
	KeyCtrlN:      "C-n",
	KeyCtrlP:      "C-p",
	KeyCtrlR:      "C-r",
	KeyCtrlU:      "C-u",
	KeyCtrlW:      "C-w",
	KeyCtrlX:      "C-x",
	KeyCtrlZ:      "C-z",
}

var keyByWire = func() map[string]KeyName {
	m := make(map[string]KeyName, len(keyWire))
	for name, wire := range keyWire {
		m[wire] = name
	}
	return m
}()

// LookupKey resolves a segment to a named key. Both the key name
// ("CtrlC") and its wire form ("C-c") are accepted; matching is
// case-sensitive in either spelling.
func LookupKey(segment string) (KeyName, bool) {
	name := KeyName(segment)
	if _, ok := keyWire[name]; ok {
		return name, true
	}
	if name, ok := keyByWire[segment]; ok {
		return name, true
	}
	return "", false
}

// KeyTokenKind discriminates named keys from literal characters.
type KeyTokenKind string

const (
	// KeyTokenNamed is a recognized special key.
	KeyTokenNamed KeyTokenKind = "named"
	// KeyTokenLiteral is a single typed character.
	KeyTokenLiteral KeyTokenKind = "literal"
)

// KeyToken is one unit of input for the target command.
type KeyToken struct {
	Kind    KeyTokenKind
	Name    KeyName
	Literal rune
}

// NamedKey wraps a key name as a token.
func NamedKey(name KeyName) KeyToken {
	return KeyToken{Kind: KeyTokenNamed, Name: name}
}

// LiteralKey wraps a single character as a token.
func LiteralKey(r rune) KeyToken {
	return KeyToken{Kind: KeyTokenLiteral, Literal: r}
}

// Wire returns the string the engine expects for this token.
func (t KeyToken) Wire() string {
	switch t.Kind {
	case KeyTokenNamed:
		if wire, ok := keyWire[t.Name]; ok {
			return wire
		}
		return string(t.Name)
	default:
		return string(t.Literal)
	}
}

// KeysToWire converts tokens to their wire form, preserving order.
func KeysToWire(tokens []KeyToken) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, token.Wire())
	}
	return out
}
