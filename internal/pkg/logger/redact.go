package logger

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Keys whose values are always treated as a subscriber address.
var piiKeys = []string{"email", "recipient", "to"}

var embeddedEmail = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks a subscriber address, keeping the domain so delivery
// problems can still be grouped by provider:
//
//	"ursula_le_guin@gmail.com" -> "ur***@gmail.com"
//	"le@gmail.com"             -> "***@gmail.com"
//
// The split is on the last "@", so stored addresses that never passed
// validation are masked too. Anything without a domain becomes "***@***".
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***@***"
	}
	local, domain := email[:at], email[at+1:]
	if utf8.RuneCountInString(local) <= 2 {
		return "***@" + domain
	}
	_, first := utf8.DecodeRuneInString(local)
	_, second := utf8.DecodeRuneInString(local[first:])
	return local[:first+second] + "***@" + domain
}

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	for _, k := range piiKeys {
		if key == k || strings.Contains(key, k+"_") || strings.HasSuffix(key, "_"+k) {
			return RedactEmail(val)
		}
	}
	return embeddedEmail.ReplaceAllStringFunc(val, RedactEmail)
}
