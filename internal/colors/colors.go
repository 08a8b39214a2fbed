// Package colors provides centralized color output with TTY-aware defaults.
//
// Colors are automatically disabled when stdout is not a terminal (piped or
// redirected to a file). This behavior is provided by the underlying fatih/color
// library and respected by default. Use Init() to override based on CLI flags.
package colors

import "github.com/fatih/color"

// Init allows overriding the auto-detected color setting.
//
//   - forceColor == nil: keep auto-detected value (recommended default)
//   - forceColor == true: force colors on (e.g., --color flag)
//   - forceColor == false: force colors off (e.g., --no-color flag)
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

// New creates a color with custom attributes.
func New(attrs ...color.Attribute) *color.Color {
	return color.New(attrs...)
}

func Bold() *color.Color        { return color.New(color.Bold) }
func Faint() *color.Color       { return color.New(color.Faint) }
func Green() *color.Color       { return color.New(color.FgGreen) }
func HiRed() *color.Color       { return color.New(color.FgHiRed) }
func HiMagenta() *color.Color   { return color.New(color.FgHiMagenta) }
func BoldHiCyan() *color.Color  { return color.New(color.Bold, color.FgHiCyan) }
func FaintHiBlue() *color.Color { return color.New(color.Faint, color.FgHiBlue) }
func ItalicFaint() *color.Color { return color.New(color.Italic, color.Faint) }

func BoldOnHiYellow() *color.Color {
	return color.New(color.Bold, color.BgHiYellow)
}

// -----------------------------------------------------------------------------
// Reference output roles
// -----------------------------------------------------------------------------

// Location colors the byte offset a reference is encoded at.
func Location() *color.Color { return color.New(color.FgHiBlue) }

// Target colors the resolved offset a reference points to.
func Target() *color.Color { return color.New(color.FgHiGreen) }

// RefType colors reference type and pool names.
func RefType() *color.Color { return HiMagenta() }

// Pass and Fail color check results.
func Pass() *color.Color { return color.New(color.Bold, color.FgGreen) }
func Fail() *color.Color { return color.New(color.Bold, color.FgRed) }
