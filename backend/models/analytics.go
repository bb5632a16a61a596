package models

// DateRange - включительный диапазон дат в формате yyyy-MM-dd.
// Фильтр применяется только когда заданы обе границы.
type DateRange struct {
	Start string `json:"start,omitempty" url:"startDate,omitempty"`
	End   string `json:"end,omitempty" url:"endDate,omitempty"`
}

func (r DateRange) IsSet() bool {
	return r.Start != "" && r.End != ""
}

// Contains сравнивает строки: формат фиксированной ширины, поэтому порядок строк совпадает с порядком дат
func (r DateRange) Contains(date string) bool {
	if !r.IsSet() {
		return true
	}
	return date >= r.Start && date <= r.End
}
