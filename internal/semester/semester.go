// Package semester derives the academic semester label used to split course
// lists into current and past.
package semester

import (
	"fmt"
	"time"
)

// moscow falls back to a fixed UTC+3 offset when tzdata is unavailable.
var moscow = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}()

// Current returns the semester label for the present moment, e.g.
// "Spring 2026" or "Fall 2025".
func Current() string {
	return At(time.Now())
}

// At returns the semester label for the given moment. February through July
// is the spring term; January still belongs to the previous fall term.
func At(t time.Time) string {
	t = t.In(moscow)
	y, m := t.Year(), int(t.Month())
	switch {
	case m >= 2 && m <= 7:
		return fmt.Sprintf("Spring %d", y)
	case m == 1:
		return fmt.Sprintf("Fall %d", y-1)
	default:
		return fmt.Sprintf("Fall %d", y)
	}
}
