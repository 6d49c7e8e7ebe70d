package domain

import "fmt"

// State is the combined moderation state of a listing: the live record's audit
// and publish tracks plus the staged-edit track.
type State struct {
	Audit  AuditStatus  `json:"auditStatus"`
	Online OnlineStatus `json:"onlineStatus"`
	Update UpdateStatus `json:"updateStatus"`
}

// Initial is the state of a freshly created listing.
var Initial = State{Audit: AuditDraft, Online: Offline, Update: UpdateNone}

func (s State) String() string {
	return fmt.Sprintf("auditStatus=%s onlineStatus=%s updateStatus=%s", s.Audit, s.Online, s.Update)
}

// Legal reports whether the combination can be reached through the transition
// table. Only approved listings can be online.
func (s State) Legal() bool {
	if !s.Audit.Valid() || !s.Online.Valid() || !s.Update.Valid() {
		return false
	}
	return s.Online == Offline || s.Audit == AuditApproved
}

// Live reports approved+online, the only state in which edits are staged.
func (s State) Live() bool { return s.Audit == AuditApproved && s.Online == Online }

type Operation string

const (
	OpEdit         Operation = "edit"
	OpSubmit       Operation = "submit"
	OpSelfOffline  Operation = "self_offline"
	OpAuditApprove Operation = "audit_approve"
	OpAuditReject  Operation = "audit_reject"
	OpPublish      Operation = "publish"
	OpOffline      Operation = "offline"
	OpSoftDelete   Operation = "soft_delete"
)

// Effect names the field-level work that accompanies a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectEditLive
	EffectStageEdit
	EffectSubmitLive
	EffectSubmitStaged
	EffectApproveLive
	EffectRejectLive
	EffectMergeStaged
	EffectRejectStaged
	EffectSoftDelete
)

// match selects states; an empty slice accepts any value of that track.
type match struct {
	Audit    []AuditStatus
	NotAudit []AuditStatus
	Online   []OnlineStatus
	Update   []UpdateStatus
}

func (m match) accepts(s State) bool {
	return in(m.Audit, s.Audit) && !contains(m.NotAudit, s.Audit) && in(m.Online, s.Online) && in(m.Update, s.Update)
}

func in[T comparable](set []T, v T) bool { return len(set) == 0 || contains(set, v) }

func contains[T comparable](set []T, v T) bool {
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}

// Transition is one row of the moderation table.
type Transition struct {
	Op     Operation
	From   match
	Effect Effect
	// To derives the successor from the current state.
	To func(State) State
	// NeedsStaged requires a non-empty staged payload.
	NeedsStaged bool
}

func keep(s State) State { return s }

var Transitions = []Transition{
	{Op: OpEdit, From: match{Audit: []AuditStatus{AuditApproved}, Online: []OnlineStatus{Online}}, Effect: EffectStageEdit,
		To: func(s State) State { s.Update = UpdateDraft; return s }},
	{Op: OpEdit, From: match{Audit: []AuditStatus{AuditDraft, AuditRejected}}, Effect: EffectEditLive, To: keep},
	{Op: OpEdit, From: match{Audit: []AuditStatus{AuditPending}}, Effect: EffectEditLive,
		To: func(s State) State { s.Audit, s.Online = AuditDraft, Offline; return s }},

	{Op: OpSubmit, From: match{Audit: []AuditStatus{AuditDraft, AuditRejected}}, Effect: EffectSubmitLive,
		To: func(s State) State { s.Audit, s.Online = AuditPending, Offline; return s }},
	{Op: OpSubmit, From: match{Audit: []AuditStatus{AuditApproved}, Online: []OnlineStatus{Offline}}, Effect: EffectSubmitLive,
		To: func(s State) State { s.Audit = AuditPending; return s }},
	{Op: OpSubmit, From: match{Audit: []AuditStatus{AuditApproved}, Online: []OnlineStatus{Online}, Update: []UpdateStatus{UpdateNone, UpdateDraft, UpdateRejected}},
		Effect: EffectSubmitStaged, NeedsStaged: true,
		To: func(s State) State { s.Update = UpdatePending; return s }},

	{Op: OpSelfOffline, From: match{Audit: []AuditStatus{AuditApproved}, Online: []OnlineStatus{Online}},
		To: func(s State) State { s.Online = Offline; return s }},

	{Op: OpAuditApprove, From: match{Audit: []AuditStatus{AuditPending}}, Effect: EffectApproveLive,
		To: func(s State) State { s.Audit = AuditApproved; return s }},
	{Op: OpAuditApprove, From: match{NotAudit: []AuditStatus{AuditPending}, Update: []UpdateStatus{UpdatePending}},
		Effect: EffectMergeStaged, NeedsStaged: true,
		To: func(s State) State { s.Update = UpdateNone; return s }},
	{Op: OpAuditReject, From: match{Audit: []AuditStatus{AuditPending}}, Effect: EffectRejectLive,
		To: func(s State) State { s.Audit, s.Online = AuditRejected, Offline; return s }},
	{Op: OpAuditReject, From: match{NotAudit: []AuditStatus{AuditPending}, Update: []UpdateStatus{UpdatePending}},
		Effect: EffectRejectStaged, NeedsStaged: true,
		To: func(s State) State { s.Update = UpdateRejected; return s }},

	{Op: OpPublish, From: match{Audit: []AuditStatus{AuditApproved}, Online: []OnlineStatus{Offline}},
		To: func(s State) State { s.Online = Online; return s }},
	{Op: OpOffline, From: match{Audit: []AuditStatus{AuditApproved}, Online: []OnlineStatus{Online}},
		To: func(s State) State { s.Online = Offline; return s }},

	{Op: OpSoftDelete, Effect: EffectSoftDelete,
		To: func(s State) State { s.Online = Offline; return s }},
}

// Next looks up the first row accepting (op, s). A miss is a *StateError.
func Next(op Operation, s State) (Transition, State, error) {
	for _, t := range Transitions {
		if t.Op == op && t.From.accepts(s) {
			return t, t.To(s), nil
		}
	}
	return Transition{}, s, &StateError{Op: op, State: s}
}
