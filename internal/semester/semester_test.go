package semester

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAt(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"february opens spring", time.Date(2026, 2, 1, 0, 0, 0, 0, msk), "Spring 2026"},
		{"july closes spring", time.Date(2026, 7, 31, 23, 59, 59, 0, msk), "Spring 2026"},
		{"august opens fall", time.Date(2026, 8, 1, 0, 0, 0, 0, msk), "Fall 2026"},
		{"december stays fall", time.Date(2026, 12, 31, 12, 0, 0, 0, msk), "Fall 2026"},
		{"january belongs to previous fall", time.Date(2027, 1, 15, 12, 0, 0, 0, msk), "Fall 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, At(tt.at))
		})
	}
}

func TestAtConvertsToMoscowTime(t *testing.T) {
	// 23:00 UTC on Jan 31 is already Feb 1 in Moscow.
	at := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "Spring 2026", At(at))
}
