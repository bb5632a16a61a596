package utils

import (
	"strings"
	"unicode"
)

// NormalizeEmail приводит email к нижнему регистру и убирает пробелы
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone оставляет только цифры и ведущий "+".
// "+7 (912) 000-11-22" и "+79120001122" дают один и тот же ключ.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			b.WriteRune(r)
		} else if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.String() == "+" {
		return ""
	}
	return b.String()
}

// IsValidEmail - простая проверка формата
func IsValidEmail(email string) bool {
	parts := strings.Split(NormalizeEmail(email), "@")
	if len(parts) != 2 {
		return false
	}
	local, domain := parts[0], parts[1]
	return len(local) > 0 && len(domain) > 2 && strings.Contains(domain, ".")
}

// ContainsFold - регистронезависимый поиск подстроки
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ContactKey приводит ключ контакта к каноническому виду: телефон нормализуется,
// остальные ключи (локальные id контактов без телефона) только обрезаются.
// Единственная функция ключа: через неё проходят и телефоны, и id.
func ContactKey(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, r := range raw {
		if !unicode.IsDigit(r) && !strings.ContainsRune("+-() .", r) {
			return raw
		}
	}
	if phone := NormalizePhone(raw); phone != "" {
		return phone
	}
	return raw
}
