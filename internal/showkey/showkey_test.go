package showkey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"madcal/internal/showkey"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase and trim", "  Wicked  ", "wicked"},
		{"accents", "Los Miserables Sinfónico", "los miserables sinfonico"},
		{"enye", "El Niño", "el nino"},
		{"em dash descriptor", "Wicked — Temporada 2025", "wicked"},
		{"en dash descriptor", "Houdini – Gira", "houdini"},
		{"hyphen descriptor", "Matilda - Teatro Nuevo", "matilda"},
		{"colon descriptor", "The Book of Mormon: El Musical", "the book of mormon"},
		{"parenthetical", "Wicked (Nuevo Teatro Alcalá)", "wicked"},
		{"punctuation to space", "Buscando a Audrey!!  ¿Sí?", "buscando a audrey si"},
		{"collapse whitespace", "The\tBook   of\nMormon", "the book of mormon"},
		{"digits kept", "Cats 2025", "cats 2025"},
		{"only descriptor", "— temporada", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, showkey.Normalize(tt.in))
		})
	}
}

func TestNormalizeGroupsVariants(t *testing.T) {
	a := showkey.Normalize("WICKED — Temporada")
	b := showkey.Normalize("Wicked (Madrid)")
	assert.Equal(t, a, b)
}
