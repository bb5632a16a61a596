// Package report считает сводки по отчётам садханы. Функции не меняют входные данные.
package report

import (
	"math"
	"sort"
	"time"

	"sadhana/backend/models"
	"sadhana/backend/utils"
)

// Stats - сводка по одному пользователю
type Stats struct {
	UserID                string                    `json:"userId"`
	TotalActivities       int                       `json:"totalActivities"`
	MangalaAartiCount     int                       `json:"mangalaAartiCount"`
	TotalJapaRounds       int                       `json:"totalJapaRounds"`
	TotalLectureDuration  int                       `json:"totalLectureDuration"`
	TotalReadingDuration  int                       `json:"totalReadingDuration"`
	BhogaOfferings        int                       `json:"bhogaOfferings"`
	PreachingContacts     int                       `json:"preachingContacts"`
	PreachingContactsList []models.PreachingContact `json:"preachingContactsList"`
}

// UserStats суммирует отчёты пользователя userID
func UserStats(userID string, activities []models.Activity) Stats {
	s := Stats{UserID: userID, PreachingContactsList: []models.PreachingContact{}}
	for _, a := range activities {
		if a.UserID != userID {
			continue
		}
		s.TotalActivities++
		if a.MangalaAarti {
			s.MangalaAartiCount++
		}
		if a.BhogaOffering {
			s.BhogaOfferings++
		}
		s.TotalJapaRounds += a.JapaRounds
		s.TotalLectureDuration += a.LectureDuration
		s.TotalReadingDuration += a.ReadingDuration
		s.PreachingContactsList = append(s.PreachingContactsList, a.PreachingContacts...)
	}
	s.PreachingContacts = len(s.PreachingContactsList)
	return s
}

// Criteria - поиск по имени/email и диапазон дат
type Criteria struct {
	SearchTerm string
	DateRange  models.DateRange
}

type Filtered struct {
	Users      []models.User     `json:"users"`
	Activities []models.Activity `json:"activities"`
}

// Filter применяет поиск и диапазон дат. Оба условия объединяются через AND.
// Без поискового запроса список пользователей не ограничивает отчёты.
func Filter(activities []models.Activity, users []models.User, c Criteria) Filtered {
	out := Filtered{Users: []models.User{}, Activities: []models.Activity{}}

	allowed := make(map[string]bool, len(users))
	for _, u := range users {
		if c.SearchTerm != "" && !utils.ContainsFold(u.Name, c.SearchTerm) && !utils.ContainsFold(u.Email, c.SearchTerm) {
			continue
		}
		out.Users = append(out.Users, u)
		allowed[u.ID] = true
	}

	for _, a := range activities {
		if c.SearchTerm != "" && !allowed[a.UserID] {
			continue
		}
		if !c.DateRange.Contains(a.Date) {
			continue
		}
		out.Activities = append(out.Activities, a)
	}
	return out
}

// TodaysActivities возвращает отчёты за сегодняшнюю дату
func TodaysActivities(activities []models.Activity, now time.Time) []models.Activity {
	today := utils.FormatDate(now)
	out := []models.Activity{}
	for _, a := range activities {
		if a.Date == today {
			out = append(out, a)
		}
	}
	return out
}

// AverageJapaPerUser - среднее, округлённое до целого; 0 если пользователей нет
func AverageJapaPerUser(totalJapaRounds, userCount int) int {
	if userCount <= 0 {
		return 0
	}
	return int(math.Floor(float64(totalJapaRounds)/float64(userCount) + 0.5))
}

// CanEditActivity: владелец может менять только сегодняшний отчёт
func CanEditActivity(date string, now time.Time) bool {
	return date == utils.FormatDate(now)
}

// RegularUsers - все, кроме администраторов
func RegularUsers(users []models.User) []models.User {
	out := []models.User{}
	for _, u := range users {
		if u.Role != models.RoleAdmin {
			out = append(out, u)
		}
	}
	return out
}

// Summary - карточки админской панели
type Summary struct {
	RegularUsers       int `json:"regularUsers"`
	TotalActivities    int `json:"totalActivities"`
	TotalJapaRounds    int `json:"totalJapaRounds"`
	AverageJapaPerUser int `json:"averageJapaPerUser"`
	BhogaOfferings     int `json:"bhogaOfferings"`
	TodaysActivities   int `json:"todaysActivities"`
	PreachingContacts  int `json:"preachingContacts"`
}

func Dashboard(users []models.User, activities []models.Activity, now time.Time) Summary {
	s := Summary{
		RegularUsers:     len(RegularUsers(users)),
		TotalActivities:  len(activities),
		TodaysActivities: len(TodaysActivities(activities, now)),
	}
	for _, a := range activities {
		s.TotalJapaRounds += a.JapaRounds
		s.PreachingContacts += len(a.PreachingContacts)
		if a.BhogaOffering {
			s.BhogaOfferings++
		}
	}
	s.AverageJapaPerUser = AverageJapaPerUser(s.TotalJapaRounds, s.RegularUsers)
	return s
}

// UserReport - строка отчёта по всем пользователям
type UserReport struct {
	User  *models.UserRef `json:"user"`
	Stats Stats           `json:"stats"`
}

func UserReports(users []models.User, activities []models.Activity) []UserReport {
	rows := make([]UserReport, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserReport{User: u.Ref(), Stats: UserStats(u.ID, activities)})
	}
	return rows
}

// Directory - справочник пользователей по id
type Directory map[string]models.User

func NewDirectory(users []models.User) Directory {
	d := make(Directory, len(users))
	for _, u := range users {
		d[u.ID] = u
	}
	return d
}

// Name возвращает имя пользователя или "Unknown"
func (d Directory) Name(id string) string {
	if u, ok := d[id]; ok && u.Name != "" {
		return u.Name
	}
	return "Unknown"
}

// ActivityUserName берёт имя из подгруженного пользователя, затем из справочника
func (d Directory) ActivityUserName(a models.Activity) string {
	if a.User != nil && a.User.Name != "" {
		return a.User.Name
	}
	return d.Name(a.UserID)
}

// SortByDateDesc возвращает копию, отсортированную по дате (новые сверху)
func SortByDateDesc(activities []models.Activity) []models.Activity {
	out := make([]models.Activity, len(activities))
	copy(out, activities)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}
