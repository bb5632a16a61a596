package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sadhana/backend/models"
)

const day = "2024-05-06"

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }

func loaded() *Ledger {
	l := &Ledger{}
	l.ReplaceDate(day, FromStatuses([]models.PreachingStatus{
		{Date: day, UserID: "u1", ContactNumber: "+100", ContactName: "Ravi", Status: "called", Attended: false},
		{Date: day, UserID: "u1", ContactNumber: "+200", ContactName: "Sita", Status: "new"},
		{Date: day, UserID: "u2", ContactNumber: "+100", ContactName: "Ravi", Status: "met", Attended: true},
	}))
	return l
}

func TestFromStatusesNestsByUserAndContact(t *testing.T) {
	l := loaded()
	e, ok := l.Get(day, "u1", "+100")
	require.True(t, ok)
	assert.Equal(t, Entry{Status: "called", ContactName: "Ravi"}, e)

	e, ok = l.Get(day, "u2", "+100")
	require.True(t, ok)
	assert.True(t, e.Attended, "same phone tracked separately per recording user")

	_, ok = l.Get("2024-05-07", "u1", "+100")
	assert.False(t, ok)
	assert.Equal(t, []string{day}, l.Dates())
}

func TestDateReturnsCopy(t *testing.T) {
	l := loaded()
	m := l.Date(day)
	m["u1"]["+100"] = Entry{Status: "mutated"}

	e, _ := l.Get(day, "u1", "+100")
	assert.Equal(t, "called", e.Status)
}

func TestPendingOverridesForDisplay(t *testing.T) {
	l := loaded()
	var p Pending
	p.Edit(day, "u1", "+100", Patch{Status: strPtr("visited")})
	p.Edit(day, "u1", "+100", Patch{Attended: boolPtr(true)})

	view := p.View(l, day, "u1", "+100")
	assert.Equal(t, Entry{Status: "visited", Attended: true, ContactName: "Ravi"}, view)

	stored, _ := l.Get(day, "u1", "+100")
	assert.Equal(t, "called", stored.Status, "overlay never touches stored ledger")
	assert.True(t, p.Has(day))
}

func TestDiscardRestoresStoredValueExactly(t *testing.T) {
	l := loaded()
	var p Pending
	before := p.View(l, day, "u1", "+200")

	p.Edit(day, "u1", "+200", Patch{Status: strPtr("scheduled"), Attended: boolPtr(true)})
	assert.NotEqual(t, before, p.View(l, day, "u1", "+200"))

	p.Discard(day)
	assert.False(t, p.Has(day))
	assert.Equal(t, before, p.View(l, day, "u1", "+200"))
	assert.Empty(t, p.Updates(l, day))
}

func TestDiscardOnlyAffectsOneDate(t *testing.T) {
	var p Pending
	p.Edit(day, "u1", "+100", Patch{Status: strPtr("a")})
	p.Edit("2024-05-07", "u1", "+100", Patch{Status: strPtr("b")})

	p.Discard(day)
	assert.False(t, p.Has(day))
	assert.True(t, p.Has("2024-05-07"))
}

func TestUpdatesCarryMergedValues(t *testing.T) {
	l := loaded()
	var p Pending
	p.Edit(day, "u2", "+100", Patch{Status: strPtr("follow up")})
	p.Edit(day, "u1", "+300", Patch{Status: strPtr("new"), ContactName: "Gopal"})
	p.Edit(day, "u1", "+100", Patch{Attended: boolPtr(true)})

	updates := p.Updates(l, day)
	require.Len(t, updates, 3)
	assert.Equal(t, models.StatusUpdate{UserID: "u1", ContactNumber: "+100", ContactName: "Ravi", Status: "called", Attended: true}, updates[0])
	assert.Equal(t, models.StatusUpdate{UserID: "u1", ContactNumber: "+300", ContactName: "Gopal", Status: "new"}, updates[1])
	assert.Equal(t, models.StatusUpdate{UserID: "u2", ContactNumber: "+100", ContactName: "Ravi", Status: "follow up", Attended: true}, updates[2])
}

func TestCloneIsDeep(t *testing.T) {
	l := loaded()
	c := l.Clone()
	c.ReplaceDate(day, DateMap{})
	_, ok := l.Get(day, "u1", "+100")
	assert.True(t, ok)

	var p Pending
	p.Edit(day, "u1", "+100", Patch{Status: strPtr("x")})
	pc := p.Clone()
	pc.Discard(day)
	assert.True(t, p.Has(day))
}

func TestAcknowledgeKeepsEditsMadeAfterSend(t *testing.T) {
	var p Pending
	p.Edit(day, "u1", "+100", Patch{Status: strPtr("called")})
	p.Edit(day, "u1", "+200", Patch{Status: strPtr("visited")})
	sent := p.Edits(day)

	p.Edit(day, "u1", "+100", Patch{Status: strPtr("no answer")})
	p.Edit(day, "u2", "+300", Patch{Attended: boolPtr(true)})
	p.Acknowledge(day, sent)

	require.True(t, p.Has(day))
	edits := p.Edits(day)
	assert.NotContains(t, edits["u1"], "+200")
	require.Contains(t, edits["u1"], "+100")
	assert.Equal(t, "no answer", *edits["u1"]["+100"].Status)
	assert.Contains(t, edits["u2"], "+300")

	p.Acknowledge(day, p.Edits(day))
	assert.False(t, p.Has(day))
}

func TestReadMethodsWorkOnValues(t *testing.T) {
	type state struct {
		Ledger  Ledger
		Pending Pending
	}
	var p Pending
	p.Edit(day, "u1", "+100", Patch{Status: strPtr("visited")})
	snapshot := func() state { return state{Ledger: *loaded(), Pending: p} }

	assert.Equal(t, []string{day}, snapshot().Ledger.Dates())
	assert.Len(t, snapshot().Ledger.Date(day), 2)
	_, ok := snapshot().Ledger.Get(day, "u2", "+100")
	assert.True(t, ok)
	assert.True(t, snapshot().Pending.Has(day))
	assert.Len(t, snapshot().Pending.Edits(day), 1)
}
