// Package palette assigns each show a stable display color from a fixed
// palette, plus a foreground color that stays readable on top of it.
package palette

import (
	"sync"
	"unicode/utf16"

	"github.com/lucasb-eyer/go-colorful"
)

// Colors is a background/foreground pair in "#rrggbb" form.
type Colors struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

const (
	Neutral   = "#999999"
	DarkText  = "#111827"
	LightText = "#ffffff"

	// luminanceThreshold splits light backgrounds (dark text) from dark ones.
	luminanceThreshold = 180
)

// Default is the show palette.
var Default = []string{
	"#FF6B6B", "#FFB86B", "#FFD93D", "#8BE9B4", "#69B7FF",
	"#8A79FF", "#FF8AD6", "#A0E1E0", "#D6A2E8", "#F6C6EA",
}

// Assigner maps show names to colors and memoizes the result until Reset.
// It is safe for concurrent use.
type Assigner struct {
	palette []string

	mu   sync.Mutex
	memo map[string]Colors
}

// NewAssigner returns an Assigner over the given palette, or Default when
// palette is empty.
func NewAssigner(palette []string) *Assigner {
	if len(palette) == 0 {
		palette = Default
	}
	p := make([]string, len(palette))
	copy(p, palette)
	return &Assigner{palette: p, memo: make(map[string]Colors)}
}

// ColorFor returns the colors for the raw show name. An empty name maps to
// the neutral gray and is not memoized.
func (a *Assigner) ColorFor(name string) Colors {
	if name == "" {
		return Colors{Background: Neutral, Foreground: Foreground(Neutral)}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.memo[name]; ok {
		return c
	}
	bg := a.palette[Hash(name)%uint32(len(a.palette))]
	c := Colors{Background: bg, Foreground: Foreground(bg)}
	a.memo[name] = c
	return c
}

// Reset drops the memo. Callers reset whenever a new show list is loaded.
func (a *Assigner) Reset() {
	a.mu.Lock()
	a.memo = make(map[string]Colors)
	a.mu.Unlock()
}

// Len reports how many names are currently memoized.
func (a *Assigner) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.memo)
}

// Hash is 32-bit FNV-1a over the UTF-16 code units of s, so non-ASCII names
// land on the same slot as in the browser dashboard.
func Hash(s string) uint32 {
	h := uint32(2166136261)
	for _, u := range utf16.Encode([]rune(s)) {
		h ^= uint32(u)
		h *= 16777619
	}
	return h
}

// Foreground picks dark text for light backgrounds and white text otherwise,
// using 0.2126R + 0.7152G + 0.0722B on 0..255 channels.
func Foreground(bg string) string {
	c, err := colorful.Hex(expandShortHex(bg))
	if err != nil {
		return LightText
	}
	r, g, b := c.RGB255()
	lum := 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
	if lum > luminanceThreshold {
		return DarkText
	}
	return LightText
}

// expandShortHex turns "#abc" into "#aabbcc".
func expandShortHex(s string) string {
	if len(s) == 4 && s[0] == '#' {
		return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s
}
