// Package stats derives dashboard counters from a user's calculations and
// projects. Nothing is stored; every request recomputes them.
package stats

import (
	"time"

	"github.com/EngCalc/calc-backend/internal/storage"
)

// Window is the trailing period counted by ThisWeek.
const Window = 7 * 24 * time.Hour

type Stats struct {
	TotalCalculations int `json:"totalCalculations"`
	SavedProjects     int `json:"savedProjects"`
	ThisWeek          int `json:"thisWeek"`
	// SharedWith is reserved for sharing and is always zero.
	SharedWith int `json:"sharedWith"`
}

// Compute counts calculations created strictly after now minus Window.
func Compute(calcs []storage.Calculation, projects []storage.Project, now time.Time) Stats {
	cutoff := now.Add(-Window)
	recent := 0
	for _, c := range calcs {
		if c.CreatedAt.After(cutoff) {
			recent++
		}
	}
	return Stats{
		TotalCalculations: len(calcs),
		SavedProjects:     len(projects),
		ThisWeek:          recent,
	}
}
