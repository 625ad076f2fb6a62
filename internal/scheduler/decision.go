package scheduler

import (
	"time"

	"github.com/quantumlayer-dev/controlplane/internal/policy"
)

// Scorecard is one candidate's scoring breakdown, used for the
// selected candidate and for the top-three list in a Reason.
type Scorecard struct {
	Candidate   string                         `json:"candidate"`
	Provider    string                         `json:"provider"`
	TotalScore  float64                        `json:"totalScore"`
	SubScores   map[policy.Dimension]float64   `json:"subScores"`
}

// SkippedCandidate records a candidate excluded before scoring, and why.
type SkippedCandidate struct {
	Candidate string `json:"candidate"`
	Reason    string `json:"reason"`
}

// ExperimentAssignment records which experiment (if any) influenced
// weight resolution and which group the request fell into.
type ExperimentAssignment struct {
	ExperimentID string `json:"experimentId"`
	Group        string `json:"group"`
}

// FailoverChoice is the cross-cloud failover candidate selected
// alongside the primary, when the tier requires one.
type FailoverChoice struct {
	Provider       string  `json:"provider"`
	Region         string  `json:"region"`
	RuntimeCluster string  `json:"runtimeCluster"`
	TotalScore     float64 `json:"totalScore"`
	Note           string  `json:"note"`
}

// Reason is the auditable record explaining why a Decision was made —
// spec.md §3's Placement Decision "reason" record.
type Reason struct {
	Tier              string                       `json:"tier"`
	RTOMinutes        int                          `json:"rtoMinutes"`
	RPOMinutes        int                          `json:"rpoMinutes"`
	EffectiveGates    []policy.Capability          `json:"effectiveGates"`
	EffectiveWeights  map[policy.Dimension]float64 `json:"effectiveWeights"`
	Selected          Scorecard                    `json:"selected"`
	TopThree          []Scorecard                  `json:"topThree"`
	CandidatesTotal   int                          `json:"candidatesEvaluated"`
	CandidatesHealthy int                          `json:"candidatesHealthy"`
	CandidatesPassed  int                          `json:"candidatesPassedGate"`
	Skipped           []SkippedCandidate           `json:"unhealthySkipped"`
	Experiment        *ExperimentAssignment        `json:"experiment,omitempty"`
	Failover          *FailoverChoice              `json:"failover,omitempty"`
	DecidedAt         time.Time                    `json:"decidedAt"`
}

// Decision is the scheduler's immutable output.
type Decision struct {
	Provider       string
	Region         string
	RuntimeCluster string
	Network        policy.NetworkAttachment
	Reason         Reason
}
