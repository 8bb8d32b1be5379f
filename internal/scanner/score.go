package scanner

import "math"

// ComputeHealth calculates a 0-100 health score for a set of analyzed files.
//
// Scoring breakdown:
//   - Maintainability:   0-60 points (average maintainability index, capped
//     at 100)
//   - Error-free files:  0-25 points (share of files with no errors)
//   - Warning density:   0-15 points (full marks at zero warnings per file,
//     none at five or more)
func ComputeHealth(reports []FileReport) Health {
	h := Health{Files: len(reports)}
	if len(reports) == 0 {
		return h
	}

	maintainability := 0
	for _, r := range reports {
		a := r.Analysis
		h.Errors += len(a.Errors)
		h.Warnings += len(a.Warnings)
		h.Suggestions += len(a.Suggestions)
		if len(a.Errors) == 0 {
			h.ErrorFreeFiles++
		}
		maintainability += a.Complexity.Maintainability
	}

	files := float64(len(reports))
	h.Maintainability = float64(maintainability) / files

	score := 60 * math.Min(h.Maintainability, 100) / 100
	score += 25 * float64(h.ErrorFreeFiles) / files

	density := float64(h.Warnings) / files
	score += 15 * (1 - math.Min(density/5, 1))

	h.Score = math.Round(score*10) / 10
	return h
}
