package ledger

import (
	"sort"

	"sadhana/backend/models"
)

// Patch - несохранённая правка; nil-поля не меняют сохранённое значение
type Patch struct {
	Status      *string `json:"status,omitempty"`
	Attended    *bool   `json:"attended,omitempty"`
	ContactName string  `json:"contactName,omitempty"`
}

func (p Patch) apply(e Entry) Entry {
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Attended != nil {
		e.Attended = *p.Attended
	}
	if p.ContactName != "" {
		e.ContactName = p.ContactName
	}
	return e
}

func (p Patch) equal(o Patch) bool {
	return p.ContactName == o.ContactName && sameString(p.Status, o.Status) && sameBool(p.Attended, o.Attended)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (p Patch) merge(next Patch) Patch {
	if next.Status != nil {
		p.Status = next.Status
	}
	if next.Attended != nil {
		p.Attended = next.Attended
	}
	if next.ContactName != "" {
		p.ContactName = next.ContactName
	}
	return p
}

// Pending - слой локальных правок с тем же ключом, что и Ledger.
// Накладывается на сохранённые значения только при отображении.
type Pending struct {
	edits map[string]map[string]map[string]Patch
}

// Edit добавляет правку; повторные правки того же контакта объединяются
func (p *Pending) Edit(date, userID, contact string, patch Patch) {
	if p.edits == nil {
		p.edits = map[string]map[string]map[string]Patch{}
	}
	if p.edits[date] == nil {
		p.edits[date] = map[string]map[string]Patch{}
	}
	if p.edits[date][userID] == nil {
		p.edits[date][userID] = map[string]Patch{}
	}
	p.edits[date][userID][contact] = p.edits[date][userID][contact].merge(patch)
}

// View возвращает значение для отображения: правка поверх сохранённого
func (p Pending) View(l *Ledger, date, userID, contact string) Entry {
	stored, _ := l.Get(date, userID, contact)
	if patch, ok := p.edits[date][userID][contact]; ok {
		return patch.apply(stored)
	}
	return stored
}

func (p Pending) Has(date string) bool {
	return len(p.edits[date]) > 0
}

// Discard отбрасывает правки даты
func (p *Pending) Discard(date string) {
	delete(p.edits, date)
}

// DatePatches - правки одной даты: userId → contactNumber → Patch
type DatePatches map[string]map[string]Patch

// Edits возвращает копию правок даты
func (p Pending) Edits(date string) DatePatches {
	out := DatePatches{}
	for u, contacts := range p.edits[date] {
		out[u] = make(map[string]Patch, len(contacts))
		for c, patch := range contacts {
			out[u][c] = patch
		}
	}
	return out
}

// Acknowledge снимает отправленные правки. Правка, изменённая после отправки,
// остаётся до следующего сохранения.
func (p *Pending) Acknowledge(date string, sent DatePatches) {
	byUser := p.edits[date]
	for u, contacts := range sent {
		for c, patch := range contacts {
			if current, ok := byUser[u][c]; ok && current.equal(patch) {
				delete(byUser[u], c)
			}
		}
		if len(byUser[u]) == 0 {
			delete(byUser, u)
		}
	}
	if len(byUser) == 0 {
		delete(p.edits, date)
	}
}

// Updates превращает правки даты в строки bulk-update. Каждая строка несёт
// полное значение (правка поверх сохранённого), порядок - по user, затем по контакту.
func (p Pending) Updates(l *Ledger, date string) []models.StatusUpdate {
	byUser := p.edits[date]
	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	var out []models.StatusUpdate
	for _, u := range users {
		contacts := make([]string, 0, len(byUser[u]))
		for c := range byUser[u] {
			contacts = append(contacts, c)
		}
		sort.Strings(contacts)
		for _, c := range contacts {
			e := p.View(l, date, u, c)
			out = append(out, models.StatusUpdate{
				UserID:        u,
				ContactNumber: c,
				ContactName:   e.ContactName,
				Status:        e.Status,
				Attended:      e.Attended,
			})
		}
	}
	return out
}

// Clone - глубокая копия слоя правок
func (p Pending) Clone() Pending {
	out := Pending{edits: make(map[string]map[string]map[string]Patch, len(p.edits))}
	for d, users := range p.edits {
		out.edits[d] = make(map[string]map[string]Patch, len(users))
		for u, contacts := range users {
			out.edits[d][u] = make(map[string]Patch, len(contacts))
			for c, patch := range contacts {
				out.edits[d][u][c] = patch
			}
		}
	}
	return out
}
