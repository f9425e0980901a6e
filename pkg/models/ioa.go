package models

// RuleMatch summarizes how often one detection rule matched the event set.
type RuleMatch struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Tactic    string `json:"tactic,omitempty"`
	Technique string `json:"technique,omitempty"`
	Count     int    `json:"count"`
}
