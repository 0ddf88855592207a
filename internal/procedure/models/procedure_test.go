package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode(t *testing.T) {
	assert.Equal(t, "EXT-MPC-2025-000042", NewCode(GroupExternal, "EXT", "MPC", 2025, 42).Value)
	assert.Equal(t, "HR-MPC-2025-00042", NewCode(GroupInternal, InternalPrefix, "MPC", 2025, 42).Value)
	assert.Equal(t, "HR-MPC-2025-123456", NewCode(GroupInternal, InternalPrefix, "MPC", 2025, 123456).Value)
}

func TestPrefixFor(t *testing.T) {
	p, err := PrefixFor(GroupExternal, " tupa ")
	require.NoError(t, err)
	assert.Equal(t, "TUPA", p)

	p, err = PrefixFor(GroupInternal, "ignored")
	require.NoError(t, err)
	assert.Equal(t, InternalPrefix, p)

	_, err = PrefixFor(GroupExternal, "")
	assert.Error(t, err)
}

func TestParseTerminalState(t *testing.T) {
	st, err := ParseTerminalState("concluido")
	require.NoError(t, err)
	assert.Equal(t, StateConcluded, st)

	_, err = ParseTerminalState("EN_REVISION")
	assert.Error(t, err)
}

func TestPatchApply(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &Procedure{State: StateInReview, Status: StatusPending}

	CompletionPatch(StateAnnulled, at).Apply(p)
	assert.Equal(t, StateAnnulled, p.State)
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, at, *p.CompletedAt)

	ReopenPatch(at.Add(time.Hour)).Apply(p)
	assert.Equal(t, StateInReview, p.State)
	assert.Nil(t, p.CompletedAt)
	assert.Equal(t, at.Add(time.Hour), p.UpdatedAt)
}

func TestDetailValidate(t *testing.T) {
	ext := &ExternalDetail{Applicant: Applicant{Type: ApplicantNatural, FirstName: "Rosa"}}
	assert.NoError(t, Detail{Group: GroupExternal, External: ext}.Validate())
	assert.Error(t, Detail{Group: GroupInternal, External: ext}.Validate())
	assert.Error(t, Detail{Group: GroupExternal, External: &ExternalDetail{Applicant: Applicant{Type: "OTRO", FirstName: "x"}}}.Validate())
	assert.NoError(t, Detail{Group: GroupInternal, Internal: &InternalDetail{}}.Validate())
}

func TestApplicantFullName(t *testing.T) {
	a := Applicant{FirstName: " Rosa ", LastName: "Huaman"}
	assert.Equal(t, "Rosa Huaman", a.FullName())
}
