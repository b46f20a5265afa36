package palette_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"madcal/internal/palette"
)

func TestHashIsFNV1a(t *testing.T) {
	assert.Equal(t, uint32(2166136261), palette.Hash(""))
	assert.Equal(t, uint32(0xe40c292c), palette.Hash("a"))
	assert.Equal(t, uint32(2032851250), palette.Hash("Wicked"))
	// Non-ASCII hashes over UTF-16 code units.
	assert.Equal(t, uint32(3283246546), palette.Hash("Teatro Alcalá"))
}

func TestColorForKnownSlots(t *testing.T) {
	a := palette.NewAssigner(nil)

	wicked := a.ColorFor("Wicked")
	assert.Equal(t, "#FF6B6B", wicked.Background)
	assert.Equal(t, palette.LightText, wicked.Foreground)

	hamilton := a.ColorFor("Hamilton")
	assert.Equal(t, "#A0E1E0", hamilton.Background)
	assert.Equal(t, palette.DarkText, hamilton.Foreground)
}

func TestColorForIsIdempotent(t *testing.T) {
	a := palette.NewAssigner(nil)
	first := a.ColorFor("Los Miserables")
	second := a.ColorFor("Los Miserables")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, a.Len())
}

func TestColorForUsesRawName(t *testing.T) {
	a := palette.NewAssigner(nil)
	a.ColorFor("Wicked")
	a.ColorFor("WICKED — Temporada")
	assert.Equal(t, 2, a.Len())
}

func TestEmptyNameIsNeutralAndNotMemoized(t *testing.T) {
	a := palette.NewAssigner(nil)
	c := a.ColorFor("")
	assert.Equal(t, palette.Neutral, c.Background)
	assert.Equal(t, palette.LightText, c.Foreground)
	assert.Equal(t, 0, a.Len())
}

func TestReset(t *testing.T) {
	a := palette.NewAssigner(nil)
	before := a.ColorFor("Matilda")
	a.Reset()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, before, a.ColorFor("Matilda"))
}

func TestCustomPalette(t *testing.T) {
	a := palette.NewAssigner([]string{"#000000"})
	assert.Equal(t, "#000000", a.ColorFor("anything").Background)
	assert.Equal(t, palette.LightText, a.ColorFor("anything").Foreground)
}

func TestForeground(t *testing.T) {
	tests := map[string]string{
		"#FFD93D": palette.DarkText,
		"#FF6B6B": palette.LightText,
		"#fff":    palette.DarkText,
		"#000":    palette.LightText,
		"garbage": palette.LightText,
	}
	for bg, want := range tests {
		assert.Equal(t, want, palette.Foreground(bg), bg)
	}
}

func TestConcurrentColorFor(t *testing.T) {
	a := palette.NewAssigner(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.ColorFor("Wicked")
			a.ColorFor("Hamilton")
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, a.Len())
}
