// Package bhoga сверяет расписание дежурств по бхоге с фактическими подношениями.
package bhoga

import (
	"fmt"
	"strings"
	"time"

	"sadhana/backend/models"
	"sadhana/backend/report"
	"sadhana/backend/utils"
)

// WindowDays - сегодня и шесть следующих дней
const WindowDays = 7

type Outcome string

const (
	// Назначенный подносил бхогу (или подносили в день без назначения)
	OutcomeOffered Outcome = "offered"
	// Назначенный не подносил, а кто-то другой подносил
	OutcomeSubstituted Outcome = "substituted"
	// Назначенный есть, подношений пока нет
	OutcomePending Outcome = "pending"
	// Ни назначения, ни подношений
	OutcomeUnscheduled Outcome = "unscheduled"
)

type Day struct {
	Date                    string            `json:"date"`
	Label                   string            `json:"label"`
	DayName                 models.Weekday    `json:"dayName"`
	AssignedUser            *models.UserRef   `json:"assignedUser"`
	Offerers                []*models.UserRef `json:"offerers"`
	AssignedUserDidNotOffer bool              `json:"assignedUserDidNotOffer"`
	Outcome                 Outcome           `json:"outcome"`
	Message                 string            `json:"message"`
}

// Reconcile строит сверку на WindowDays дней начиная с today
func Reconcile(schedule models.BhogaSchedule, activities []models.Activity, users []models.User, today time.Time) []Day {
	dir := report.NewDirectory(users)
	start := utils.StartOfDay(today)

	byDate := make(map[string][]models.Activity)
	for _, a := range activities {
		if a.BhogaOffering {
			byDate[a.Date] = append(byDate[a.Date], a)
		}
	}

	days := make([]Day, 0, WindowDays)
	for i := 0; i < WindowDays; i++ {
		date := start.AddDate(0, 0, i)
		days = append(days, reconcileDay(date, i, schedule, byDate[utils.FormatDate(date)], dir))
	}
	return days
}

func reconcileDay(date time.Time, offset int, schedule models.BhogaSchedule, offerings []models.Activity, dir report.Directory) Day {
	weekday := models.WeekdayOf(date)
	day := Day{
		Date:     utils.FormatDate(date),
		Label:    Label(date, offset),
		DayName:  weekday,
		Offerers: []*models.UserRef{},
	}

	if ref := schedule.Get(weekday); ref != nil && ref.ID != "" {
		assigned := *ref
		if assigned.Name == "" {
			assigned.Name = dir.Name(assigned.ID)
		}
		day.AssignedUser = &assigned
	}

	offered := map[string]bool{}
	for _, a := range offerings {
		if offered[a.UserID] {
			continue
		}
		offered[a.UserID] = true
		day.Offerers = append(day.Offerers, &models.UserRef{ID: a.UserID, Name: dir.ActivityUserName(a)})
	}

	day.AssignedUserDidNotOffer = day.AssignedUser != nil && !offered[day.AssignedUser.ID] && len(offerings) > 0

	switch {
	case day.AssignedUserDidNotOffer:
		day.Outcome = OutcomeSubstituted
		day.Message = fmt.Sprintf("%s was assigned but did not offer bhoga. Bhoga offered by %s.",
			day.AssignedUser.Name, strings.Join(names(day.Offerers), ", "))
	case len(offerings) > 0:
		day.Outcome = OutcomeOffered
		day.Message = fmt.Sprintf("Bhoga offered by %s.", strings.Join(names(day.Offerers), ", "))
	case day.AssignedUser != nil:
		day.Outcome = OutcomePending
		day.Message = fmt.Sprintf("Assigned user %s has not offered bhoga yet.", day.AssignedUser.Name)
	default:
		day.Outcome = OutcomeUnscheduled
		day.Message = "No bhoga offered scheduled yet"
	}
	return day
}

// Label: "Today", "Tomorrow" или дата вида "Jan 02, 2006"
func Label(date time.Time, offset int) string {
	switch offset {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return date.Format("Jan 02, 2006")
	}
}

func names(refs []*models.UserRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Name)
	}
	return out
}
