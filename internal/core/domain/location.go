package domain

import (
	"regexp"
	"strings"
)

var stateCodePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

// IsCityState проверяет формат "<город>, <код штата>": ровно одна запятая,
// непустой город и двухбуквенный код штата
func IsCityState(s string) bool {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return false
	}
	city, state := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	return city != "" && stateCodePattern.MatchString(state)
}
