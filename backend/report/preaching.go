package report

import (
	"math"
	"time"

	"sadhana/backend/models"
	"sadhana/backend/utils"
)

const (
	PreachingReportDays  = 30
	PreachingRecentLimit = 10
	StatusWindowDays     = 7
	StatusWindowPageSize = 8
)

type PreachingEntry struct {
	ActivityID string                    `json:"activityId"`
	UserID     string                    `json:"userId"`
	UserName   string                    `json:"userName"`
	Date       string                    `json:"date"`
	Contacts   []models.PreachingContact `json:"contacts"`
}

type PreachingSummary struct {
	From                      string           `json:"from"`
	ActivitiesWithContacts    int              `json:"activitiesWithContacts"`
	TotalContacts             int              `json:"totalContacts"`
	UniqueDevotees            int              `json:"uniqueDevotees"`
	AverageContactsPerDevotee float64          `json:"averageContactsPerDevotee"`
	Recent                    []PreachingEntry `json:"recent"`
}

// Preaching собирает отчёт о проповеди за последние days дней.
// Среднее округляется до одного знака после запятой.
func Preaching(activities []models.Activity, dir Directory, now time.Time, days, recent int) PreachingSummary {
	from := utils.FormatDate(utils.AddDays(now, -days))
	s := PreachingSummary{From: from, Recent: []PreachingEntry{}}

	devotees := map[string]bool{}
	var entries []models.Activity
	for _, a := range activities {
		if a.Date < from || len(a.PreachingContacts) == 0 {
			continue
		}
		entries = append(entries, a)
		s.TotalContacts += len(a.PreachingContacts)
		devotees[a.UserID] = true
	}
	s.ActivitiesWithContacts = len(entries)
	s.UniqueDevotees = len(devotees)
	if s.UniqueDevotees > 0 {
		avg := float64(s.TotalContacts) / float64(s.UniqueDevotees)
		s.AverageContactsPerDevotee = math.Floor(avg*10+0.5) / 10
	}

	for i, a := range SortByDateDesc(entries) {
		if i >= recent {
			break
		}
		s.Recent = append(s.Recent, PreachingEntry{
			ActivityID: a.ID,
			UserID:     a.UserID,
			UserName:   dir.ActivityUserName(a),
			Date:       a.Date,
			Contacts:   a.PreachingContacts,
		})
	}
	return s
}

// DateWindow возвращает даты от today-before до today+after, новые сверху
func DateWindow(now time.Time, before, after int) []string {
	dates := make([]string, 0, before+after+1)
	for offset := after; offset >= -before; offset-- {
		dates = append(dates, utils.FormatDate(utils.AddDays(now, offset)))
	}
	return dates
}

// Paginate возвращает страницу page (с 1) и общее число страниц
func Paginate[T any](items []T, page, perPage int) ([]T, int) {
	if perPage <= 0 {
		perPage = StatusWindowPageSize
	}
	pages := (len(items) + perPage - 1) / perPage
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}, pages
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pages
}
