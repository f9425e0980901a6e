package models

import "time"

// Decision is the triage verdict for a run.
type Decision string

const (
	DecisionEscalate            Decision = "ESCALATE"
	DecisionInvestigateFurther  Decision = "INVESTIGATE_FURTHER"
	DecisionLikelyFalsePositive Decision = "LIKELY_FALSE_POSITIVE"
)

// Confidence accompanies a Decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// RiskLevel is the categorical host risk.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// HostRisk is the cumulative risk of the selected pivots.
type HostRisk struct {
	Score int       `json:"score"`
	Level RiskLevel `json:"level"`
}

// HistoricalContext describes earlier sightings of a command signature.
// FirstSeen and LastSeen are nil when Count is zero.
type HistoricalContext struct {
	Token     string     `json:"token"`
	Window    string     `json:"window"`
	Count     int        `json:"count"`
	FirstSeen *time.Time `json:"first_seen"`
	LastSeen  *time.Time `json:"last_seen"`
}

// MTTR compares manual and automated time-to-decision.
type MTTR struct {
	ManualMinutes    float64 `json:"manual_mttr_minutes"`
	AutomatedMinutes float64 `json:"automated_mttr_minutes"`
	ReductionPercent float64 `json:"mttr_reduction_percent"`
}

// ManualSummary is the outcome of the simulated analyst walk.
type ManualSummary struct {
	PivotsReviewed int       `json:"pivots_reviewed"`
	AlertStart     time.Time `json:"alert_start"`
	DecisionTime   time.Time `json:"decision_time"`
	MTTRMinutes    float64   `json:"mttr_minutes"`
}

// BaselineResult is the alert-to-first-suspicious-event metric. Nil pointers
// mean there was no signal; Warning says why.
type BaselineResult struct {
	Events           int        `json:"events"`
	SuspiciousEvents int        `json:"suspicious_events"`
	AlertStart       *time.Time `json:"alert_start"`
	FirstPivot       *time.Time `json:"first_pivot"`
	MTTRMinutes      *float64   `json:"mttr_minutes"`
	Warning          string     `json:"warning,omitempty"`
}

// DecisionRecord is the dossier handed to reporting.
type DecisionRecord struct {
	IncidentID         string             `json:"incident_id"`
	Decision           Decision           `json:"decision"`
	Confidence         Confidence         `json:"confidence"`
	MaxScore           int                `json:"max_score"`
	HostRisk           HostRisk           `json:"host_risk"`
	PrimaryIndicator   PivotCandidate     `json:"primary_indicator"`
	SelectedPivots     []PivotCandidate   `json:"selected_pivots"`
	HistoricalContext  HistoricalContext  `json:"historical_context"`
	MitreTechniques    []Technique        `json:"mitre_techniques"`
	RecommendedActions []string           `json:"recommended_actions"`
	RuleMatches        []RuleMatch        `json:"rule_matches,omitempty"`
	Manual             *ManualSummary     `json:"manual_simulation,omitempty"`
	MTTR
}

// OutcomeStatus distinguishes a decision, a run without signal, and a run that
// could not complete.
type OutcomeStatus string

const (
	StatusDecided  OutcomeStatus = "decided"
	StatusNoSignal OutcomeStatus = "no_signal"
	StatusFailed   OutcomeStatus = "failed"
)

// Error kinds surfaced in an Outcome.
const (
	ErrorKindEmptyCandidateSet  = "EmptyCandidateSet"
	ErrorKindUndefinedReduction = "UndefinedReduction"
)

// Outcome is the structured result of one pipeline run.
type Outcome struct {
	Status     OutcomeStatus   `json:"status"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Message    string          `json:"message,omitempty"`
	Confidence Confidence      `json:"confidence,omitempty"`
	Ingest     IngestStats     `json:"ingest"`
	Candidates int             `json:"candidates"`
	Noise      int             `json:"noise_candidates"`
	Record     *DecisionRecord `json:"record"`
	Baseline   BaselineResult  `json:"baseline"`
}
