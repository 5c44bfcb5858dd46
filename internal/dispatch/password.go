package dispatch

import (
	"math/rand/v2"
	"strings"
)

const (
	minPasswordLen = 12
	specialChars   = "{}()[]#:;^,.?!|&_`~@$%/\\+-*='\""
	lowerChars     = "abcdefghijklmnopqrstuvwxyz"
	digitChars     = "0123456789"
)

var leet = strings.NewReplacer(
	"o", "0", "O", "0",
	"i", "1", "I", "1",
	"z", "2", "Z", "2",
	"e", "3", "E", "3",
	"A", "4",
	"s", "5", "S", "5",
	"G", "6",
	"B", "8",
)

// Strengthen returns pwd changed just enough to hold a special character,
// a digit, a lower and an upper case letter, and at least 12 characters.
// A password that already qualifies comes back unchanged.
func Strengthen(pwd string, rng *rand.Rand) string {
	pick := func(set string) string { return string(set[rng.IntN(len(set))]) }

	if !strings.ContainsFunc(pwd, isSpecial) {
		pwd += pick(specialChars)
	}
	if !strings.ContainsFunc(pwd, isDigit) {
		pwd = leet.Replace(pwd)
		if !strings.ContainsFunc(pwd, isDigit) {
			pwd += pick(digitChars)
		}
	}
	if countFunc(pwd, isLetter) < 2 {
		pwd += pick(lowerChars) + strings.ToUpper(pick(lowerChars))
	}
	if !strings.ContainsFunc(pwd, isLower) {
		i := strings.IndexFunc(pwd, isUpper)
		pwd = pwd[:i] + strings.ToLower(pwd[i:i+1]) + pwd[i+1:]
	}
	if !strings.ContainsFunc(pwd, isUpper) {
		i := strings.IndexFunc(pwd, isLower)
		pwd = pwd[:i] + strings.ToUpper(pwd[i:i+1]) + pwd[i+1:]
	}

	pool := lowerChars + digitChars + specialChars
	for n := len([]rune(pwd)); n < minPasswordLen; n++ {
		pwd += pick(pool)
	}
	return pwd
}

func isLower(r rune) bool   { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool   { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool   { return r >= '0' && r <= '9' }
func isLetter(r rune) bool  { return isLower(r) || isUpper(r) }
func isSpecial(r rune) bool { return !isLetter(r) && !isDigit(r) }

func countFunc(s string, f func(rune) bool) int {
	n := 0
	for _, r := range s {
		if f(r) {
			n++
		}
	}
	return n
}
