package config

import zxcvbn "github.com/ccojocar/zxcvbn-go"

// Tokens scoring below this on the zxcvbn 0..4 scale are flagged at startup.
const minTokenScore = 3

// IsWeakToken reports whether the admin token is too guessable to protect
// the admin API. An empty token disables auth entirely and is reported
// separately, so it is not considered weak here.
func IsWeakToken(token string) bool {
	if token == "" {
		return false
	}
	return zxcvbn.PasswordStrength(token, nil).Score < minTokenScore
}
