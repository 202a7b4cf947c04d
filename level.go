package connmock

import "fmt"

// Level controls how much diagnostic output the connector emits through
// its logger. Levels are ordered: LevelNone < LevelError < LevelMissing.
type Level int

const (
	// LevelNone disables diagnostics.
	LevelNone Level = iota

	// LevelError logs matcher failures during dispatch.
	LevelError

	// LevelMissing additionally logs a per-case mismatch report when no
	// case matches an incoming request. This is the default.
	LevelMissing
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelError:
		return "error"
	case LevelMissing:
		return "missing"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}
