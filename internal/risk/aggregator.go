package risk

import "pivottriage/pkg/models"

// Config sets the per-candidate weights and the level cutoffs. A candidate
// scoring at least HighScore adds HighWeight, at least MediumScore adds
// MediumWeight, anything else adds LowWeight.
type Config struct {
	HighScore    int
	MediumScore  int
	HighWeight   int
	MediumWeight int
	LowWeight    int
	HighLevel    int
	MediumLevel  int
}

// Aggregate sums tier weights over the selected candidates. Empty input is
// a zero LOW risk.
func Aggregate(selected []models.PivotCandidate, cfg Config) models.HostRisk {
	score := 0
	for _, c := range selected {
		switch {
		case c.Score >= cfg.HighScore:
			score += cfg.HighWeight
		case c.Score >= cfg.MediumScore:
			score += cfg.MediumWeight
		default:
			score += cfg.LowWeight
		}
	}
	return models.HostRisk{Score: score, Level: Level(score, cfg)}
}

// Level maps a cumulative risk score to its category.
func Level(score int, cfg Config) models.RiskLevel {
	switch {
	case score >= cfg.HighLevel:
		return models.RiskHigh
	case score >= cfg.MediumLevel:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
