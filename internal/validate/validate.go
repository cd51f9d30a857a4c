package validate

import (
	"regexp"
	"strings"
)

var (
	reEmail    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reUsername = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,180}$`)
	reObject   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)
	reRole     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)
	reClass    = regexp.MustCompile(`^(DataTable|Test|ViewTemplate)$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 255 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Username trims s and checks it against the account name charset.
func Username(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reUsername.MatchString(s)
}

// ObjectName validates a content object name; names double as R identifiers
// so they must start with a letter.
func ObjectName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reObject.MatchString(s)
}

// RoleName validates a configured role name.
func RoleName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reRole.MatchString(s)
}

// ClassName validates content object class enums.
func ClassName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reClass.MatchString(s)
}

// Password enforces a simple length window.
func Password(s string) bool {
	l := len(s)
	return l >= 1 && l <= 4096
}
