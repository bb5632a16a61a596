package bhoga

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sadhana/backend/models"
)

// Среда
var today = time.Date(2024, 5, 8, 14, 0, 0, 0, time.UTC)

var (
	alice = models.User{ID: "alice", Name: "Alice", Role: models.RoleUser}
	bob   = models.User{ID: "bob", Name: "Bob", Role: models.RoleUser}
	carol = models.User{ID: "carol", Name: "Carol", Role: models.RoleUser}
	users = []models.User{alice, bob, carol}
)

const nextMonday = "2024-05-13"

func mondayAlice(t *testing.T) models.BhogaSchedule {
	t.Helper()
	s := models.NewBhogaSchedule()
	require.NoError(t, s.Assign(models.Monday, &models.UserRef{ID: alice.ID}))
	return s
}

func dayFor(t *testing.T, days []Day, date string) Day {
	t.Helper()
	for _, d := range days {
		if d.Date == date {
			return d
		}
	}
	t.Fatalf("no day %s in window", date)
	return Day{}
}

func TestWindowCoversTodayPlusSix(t *testing.T) {
	days := Reconcile(models.NewBhogaSchedule(), nil, users, today)
	require.Len(t, days, WindowDays)
	assert.Equal(t, "2024-05-08", days[0].Date)
	assert.Equal(t, "Today", days[0].Label)
	assert.Equal(t, models.Wednesday, days[0].DayName)
	assert.Equal(t, "Tomorrow", days[1].Label)
	assert.Equal(t, "May 10, 2024", days[2].Label)
	assert.Equal(t, "2024-05-14", days[6].Date)
}

func TestSubstituteIsFlagged(t *testing.T) {
	activities := []models.Activity{
		{UserID: bob.ID, Date: nextMonday, BhogaOffering: true},
	}
	day := dayFor(t, Reconcile(mondayAlice(t), activities, users, today), nextMonday)

	assert.Equal(t, models.Monday, day.DayName)
	assert.True(t, day.AssignedUserDidNotOffer)
	assert.Equal(t, OutcomeSubstituted, day.Outcome)
	assert.Equal(t, "Alice was assigned but did not offer bhoga. Bhoga offered by Bob.", day.Message)
}

func TestSeveralSubstitutes(t *testing.T) {
	activities := []models.Activity{
		{UserID: bob.ID, Date: nextMonday, BhogaOffering: true},
		{UserID: carol.ID, Date: nextMonday, BhogaOffering: true},
	}
	day := dayFor(t, Reconcile(mondayAlice(t), activities, users, today), nextMonday)
	assert.Contains(t, day.Message, "Bhoga offered by Bob, Carol.")
}

func TestAssigneeNotYetOffered(t *testing.T) {
	activities := []models.Activity{
		{UserID: alice.ID, Date: nextMonday, BhogaOffering: false},
	}
	day := dayFor(t, Reconcile(mondayAlice(t), activities, users, today), nextMonday)

	assert.False(t, day.AssignedUserDidNotOffer)
	assert.Equal(t, OutcomePending, day.Outcome)
	assert.Contains(t, day.Message, "Alice has not offered bhoga yet")
}

func TestAssigneeOffered(t *testing.T) {
	activities := []models.Activity{
		{UserID: alice.ID, Date: nextMonday, BhogaOffering: true},
		{UserID: bob.ID, Date: nextMonday, BhogaOffering: true},
	}
	day := dayFor(t, Reconcile(mondayAlice(t), activities, users, today), nextMonday)

	assert.False(t, day.AssignedUserDidNotOffer)
	assert.Equal(t, OutcomeOffered, day.Outcome)
	assert.Len(t, day.Offerers, 2)
}

func TestUnassignedDays(t *testing.T) {
	activities := []models.Activity{
		{UserID: carol.ID, Date: "2024-05-09", BhogaOffering: true},
	}
	days := Reconcile(mondayAlice(t), activities, users, today)

	thursday := dayFor(t, days, "2024-05-09")
	assert.Nil(t, thursday.AssignedUser)
	assert.False(t, thursday.AssignedUserDidNotOffer)
	assert.Equal(t, OutcomeOffered, thursday.Outcome)

	sunday := dayFor(t, days, "2024-05-12")
	assert.Equal(t, models.Sunday, sunday.DayName)
	assert.Nil(t, sunday.AssignedUser)
	assert.Equal(t, OutcomeUnscheduled, sunday.Outcome)
	assert.Equal(t, "No bhoga offered scheduled yet", sunday.Message)
}

func TestUnknownAssignee(t *testing.T) {
	s := models.NewBhogaSchedule()
	require.NoError(t, s.Assign(models.Monday, &models.UserRef{ID: "gone"}))
	day := dayFor(t, Reconcile(s, nil, users, today), nextMonday)
	assert.Equal(t, "Assigned user Unknown has not offered bhoga yet.", day.Message)
}
