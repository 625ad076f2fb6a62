// Package store defines C6: the persistence contract the core
// consumes. The interface is collaborator-shaped on purpose — the
// relational layer backing it is out of scope for the core itself
// (spec.md §1), so this package only names the operations and the
// rows they move, leaving storage engines to the store/postgres and
// store/memory implementations.
package store

import (
	"time"

	"github.com/quantumlayer-dev/controlplane/internal/policy"
	"github.com/quantumlayer-dev/controlplane/internal/scheduler"
)

// PlacementStatus is the lifecycle status of a persisted Placement
// Record, distinct from the transient saga state that produced it.
type PlacementStatus string

const (
	PlacementProvisioning PlacementStatus = "PROVISIONING"
	PlacementReady        PlacementStatus = "READY"
	PlacementFailed       PlacementStatus = "FAILED"
)

// Placement is the persisted record of a successful scheduling
// decision, spec.md §3's "Placement Record": every field of the
// Decision plus status and resource identity.
type Placement struct {
	ID             string
	Product        string
	Namespace      string
	Name           string
	Provider       string
	Region         string
	RuntimeCluster string
	Network        policy.NetworkAttachment
	Reason         scheduler.Reason
	Status         PlacementStatus
	APIVersion     string
	Kind           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SagaState is one of the six states a Saga Execution can occupy.
type SagaState string

const (
	SagaPending      SagaState = "PENDING"
	SagaRunning      SagaState = "RUNNING"
	SagaCompleted    SagaState = "COMPLETED"
	SagaFailed       SagaState = "FAILED"
	SagaCompensating SagaState = "COMPENSATING"
	SagaRolledBack   SagaState = "ROLLED_BACK"
)

// The canonical six-step order spec.md §4.4 fixes.
const (
	StepValidate    = "validate"
	StepSchedule    = "schedule"
	StepApplyClaim  = "apply_claim"
	StepWaitReady   = "wait_ready"
	StepRegister    = "register"
	StepNotify      = "notify"
)

// Steps is the canonical step order, used to validate that a saga's
// steps_completed list is always a prefix of it.
var Steps = []string{StepValidate, StepSchedule, StepApplyClaim, StepWaitReady, StepRegister, StepNotify}

// Saga is the persisted record of one saga execution.
type Saga struct {
	ID              string
	Product         string
	Name            string
	Namespace       string
	State           SagaState
	CurrentStep     string
	StepsCompleted  []string
	ErrorMessage    string
	PlacementID     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReplicationState is one of the nine states a Replication Pair can occupy.
type ReplicationState string

const (
	ReplicationPending             ReplicationState = "PENDING"
	ReplicationProvisioningSecond  ReplicationState = "PROVISIONING_SECONDARY"
	ReplicationConfiguring         ReplicationState = "CONFIGURING"
	ReplicationReplicating         ReplicationState = "REPLICATING"
	ReplicationLagWarning          ReplicationState = "LAG_WARNING"
	ReplicationFailoverInProgress  ReplicationState = "FAILOVER_IN_PROGRESS"
	ReplicationFailedOver          ReplicationState = "FAILED_OVER"
	ReplicationSuspended           ReplicationState = "SUSPENDED"
	ReplicationError               ReplicationState = "ERROR"
)

// FailoverPhase is one of the seven phases of a failover, plus IDLE.
type FailoverPhase string

const (
	PhaseIdle              FailoverPhase = "IDLE"
	PhaseFreezeWrites      FailoverPhase = "FREEZE_WRITES"
	PhaseVerifyLag         FailoverPhase = "VERIFY_LAG"
	PhasePromoteSecondary  FailoverPhase = "PROMOTE_SECONDARY"
	PhaseUpdateDNS         FailoverPhase = "UPDATE_DNS"
	PhaseScaleCompute      FailoverPhase = "SCALE_COMPUTE"
	PhaseCompleted         FailoverPhase = "COMPLETED"
	PhaseAborted           FailoverPhase = "ABORTED"
)

// ReplicaEndpoint identifies one side (primary or secondary) of a
// Replication Pair.
type ReplicaEndpoint struct {
	Provider       string
	Region         string
	RuntimeCluster string
	PlacementID    string
}

// ReplicationPair is the persisted record of one DR replication
// relationship, spec.md §3's "Replication Pair".
type ReplicationPair struct {
	ID              string
	Cell            string
	Namespace       string
	Name            string
	Product         string
	Tier            string
	Primary         ReplicaEndpoint
	Secondary       ReplicaEndpoint
	DeploymentHandle string
	State           ReplicationState
	LagMillis       int64
	RPOTargetMinutes int
	RTOTargetMinutes int
	FailoverPhase   FailoverPhase
	Strategy        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Credentials is an opaque per-provider credential blob, spec.md §3's
// "provider credentials (opaque blob, validated flag)".
type Credentials struct {
	Provider  string
	Blob      []byte
	Validated bool
	UpdatedAt time.Time
}

// AuditEvent is one row of the monotonic, hash-chained audit log.
type AuditEvent struct {
	Sequence  int64
	PrevHash  string
	Hash      string
	Kind      string
	Actor     string
	Subject   string
	Detail    map[string]interface{}
	CreatedAt time.Time
}
