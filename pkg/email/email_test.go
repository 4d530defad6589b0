package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveNameFromEmail(t *testing.T) {
	tests := []struct {
		name       string
		address    string
		wantGiven  string
		wantFamily string
	}{
		{
			name:       "dot-separated local part",
			address:    "hana.suzuki@example.org",
			wantGiven:  "Hana",
			wantFamily: "Suzuki",
		},
		{
			name:       "underscore and plus tag",
			address:    "kenji_tanaka+alumni@example.org",
			wantGiven:  "Kenji",
			wantFamily: "Alumni",
		},
		{
			name:       "single segment has no family guess",
			address:    "info@example.org",
			wantGiven:  "Info",
			wantFamily: "",
		},
		{
			name:       "empty local part falls back",
			address:    "@example.org",
			wantGiven:  "Member",
			wantFamily: "",
		},
		{
			name:       "no at sign still splits",
			address:    "mei.kobayashi",
			wantGiven:  "Mei",
			wantFamily: "Kobayashi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			given, family := DeriveNameFromEmail(tt.address)
			assert.Equal(t, tt.wantGiven, given)
			assert.Equal(t, tt.wantFamily, family)
		})
	}
}
