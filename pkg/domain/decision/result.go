package decision

type RuleState string

const (
	StateRun    RuleState = "RUN"
	StateDryRun RuleState = "DRY_RUN"
	StateCached RuleState = "CACHED"
	StateNotRun RuleState = "NOT_RUN"
)

// RuleResult is the outcome of one configured rule.
type RuleResult struct {
	RuleID     string     `json:"rule_id"`
	State      RuleState  `json:"state"`
	Conclusion Conclusion `json:"conclusion"`
	Reason     Reason     `json:"reason"`
	TTL        int        `json:"ttl"`
}

// IsSpoofedBot reports a client claiming a benign bot identity that the oracle
// could not verify. Results from rules in dry run never count.
func (r RuleResult) IsSpoofedBot() bool {
	if r.State == StateDryRun {
		return false
	}
	return r.Reason.IsSpoofed()
}
