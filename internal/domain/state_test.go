package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_listings/internal/domain"
)

func st(a domain.AuditStatus, o domain.OnlineStatus, u domain.UpdateStatus) domain.State {
	return domain.State{Audit: a, Online: o, Update: u}
}

func TestNext_Table(t *testing.T) {
	cases := []struct {
		name   string
		op     domain.Operation
		from   domain.State
		to     domain.State
		effect domain.Effect
	}{
		{"edit draft", domain.OpEdit, domain.Initial, domain.Initial, domain.EffectEditLive},
		{"edit pending resets", domain.OpEdit,
			st(domain.AuditPending, domain.Offline, domain.UpdateNone),
			st(domain.AuditDraft, domain.Offline, domain.UpdateNone), domain.EffectEditLive},
		{"edit live stages", domain.OpEdit,
			st(domain.AuditApproved, domain.Online, domain.UpdateNone),
			st(domain.AuditApproved, domain.Online, domain.UpdateDraft), domain.EffectStageEdit},
		{"edit live while staged pending restages", domain.OpEdit,
			st(domain.AuditApproved, domain.Online, domain.UpdatePending),
			st(domain.AuditApproved, domain.Online, domain.UpdateDraft), domain.EffectStageEdit},
		{"submit rejected", domain.OpSubmit,
			st(domain.AuditRejected, domain.Offline, domain.UpdateNone),
			st(domain.AuditPending, domain.Offline, domain.UpdateNone), domain.EffectSubmitLive},
		{"resubmit approved offline", domain.OpSubmit,
			st(domain.AuditApproved, domain.Offline, domain.UpdateNone),
			st(domain.AuditPending, domain.Offline, domain.UpdateNone), domain.EffectSubmitLive},
		{"submit staged", domain.OpSubmit,
			st(domain.AuditApproved, domain.Online, domain.UpdateRejected),
			st(domain.AuditApproved, domain.Online, domain.UpdatePending), domain.EffectSubmitStaged},
		{"submit live without staged edit needs payload", domain.OpSubmit,
			st(domain.AuditApproved, domain.Online, domain.UpdateNone),
			st(domain.AuditApproved, domain.Online, domain.UpdatePending), domain.EffectSubmitStaged},
		{"approve first review keeps offline", domain.OpAuditApprove,
			st(domain.AuditPending, domain.Offline, domain.UpdateNone),
			st(domain.AuditApproved, domain.Offline, domain.UpdateNone), domain.EffectApproveLive},
		{"reject first review", domain.OpAuditReject,
			st(domain.AuditPending, domain.Offline, domain.UpdateNone),
			st(domain.AuditRejected, domain.Offline, domain.UpdateNone), domain.EffectRejectLive},
		{"approve staged", domain.OpAuditApprove,
			st(domain.AuditApproved, domain.Online, domain.UpdatePending),
			st(domain.AuditApproved, domain.Online, domain.UpdateNone), domain.EffectMergeStaged},
		{"reject staged", domain.OpAuditReject,
			st(domain.AuditApproved, domain.Online, domain.UpdatePending),
			st(domain.AuditApproved, domain.Online, domain.UpdateRejected), domain.EffectRejectStaged},
		{"publish", domain.OpPublish,
			st(domain.AuditApproved, domain.Offline, domain.UpdateNone),
			st(domain.AuditApproved, domain.Online, domain.UpdateNone), domain.EffectNone},
		{"offline", domain.OpOffline,
			st(domain.AuditApproved, domain.Online, domain.UpdateDraft),
			st(domain.AuditApproved, domain.Offline, domain.UpdateDraft), domain.EffectNone},
		{"self offline", domain.OpSelfOffline,
			st(domain.AuditApproved, domain.Online, domain.UpdateNone),
			st(domain.AuditApproved, domain.Offline, domain.UpdateNone), domain.EffectNone},
		{"delete live", domain.OpSoftDelete,
			st(domain.AuditApproved, domain.Online, domain.UpdateNone),
			st(domain.AuditApproved, domain.Offline, domain.UpdateNone), domain.EffectSoftDelete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, next, err := domain.Next(tc.op, tc.from)
			require.NoError(t, err)
			assert.Equal(t, tc.to, next)
			assert.Equal(t, tc.effect, tr.Effect)
			assert.True(t, next.Legal(), "successor %s must be legal", next)
		})
	}
}

func TestNext_RejectsIllegal(t *testing.T) {
	cases := []struct {
		op   domain.Operation
		from domain.State
	}{
		{domain.OpEdit, st(domain.AuditApproved, domain.Offline, domain.UpdateNone)},
		{domain.OpSubmit, st(domain.AuditPending, domain.Offline, domain.UpdateNone)},
		{domain.OpSubmit, st(domain.AuditApproved, domain.Online, domain.UpdatePending)},
		{domain.OpAuditApprove, domain.Initial},
		{domain.OpAuditReject, st(domain.AuditApproved, domain.Online, domain.UpdateDraft)},
		{domain.OpPublish, st(domain.AuditApproved, domain.Online, domain.UpdateNone)},
		{domain.OpPublish, st(domain.AuditRejected, domain.Offline, domain.UpdateNone)},
		{domain.OpOffline, st(domain.AuditApproved, domain.Offline, domain.UpdateNone)},
		{domain.OpSelfOffline, domain.Initial},
	}
	for _, tc := range cases {
		_, next, err := domain.Next(tc.op, tc.from)
		require.Error(t, err, "%s from %s", tc.op, tc.from)
		assert.True(t, errors.Is(err, domain.ErrInvalidState))

		var se *domain.StateError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tc.from, se.State)
		assert.Contains(t, err.Error(), string(tc.from.Audit))
		assert.Equal(t, tc.from, next)
	}
}

// Every successor reachable from the initial state through the table is legal.
func TestTransitions_ClosedOverLegalStates(t *testing.T) {
	ops := []domain.Operation{
		domain.OpEdit, domain.OpSubmit, domain.OpSelfOffline, domain.OpAuditApprove,
		domain.OpAuditReject, domain.OpPublish, domain.OpOffline,
	}
	seen := map[domain.State]bool{domain.Initial: true}
	queue := []domain.State{domain.Initial}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, op := range ops {
			_, next, err := domain.Next(op, s)
			if err != nil {
				continue
			}
			require.True(t, next.Legal(), "%s from %s gave %s", op, s, next)
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	for s := range seen {
		if s.Online == domain.Online {
			assert.Equal(t, domain.AuditApproved, s.Audit)
		}
	}
}

func TestState_Legal(t *testing.T) {
	assert.True(t, domain.Initial.Legal())
	assert.False(t, st(domain.AuditDraft, domain.Online, domain.UpdateNone).Legal())
	assert.False(t, st("archived", domain.Offline, domain.UpdateNone).Legal())
}
