package account

import (
	"math/rand/v2"
	"strconv"
)

const (
	minID = 1000000
	maxID = 9999999

	// MaxIDAttempts bounds the collision retries of a single create.
	MaxIDAttempts = 10
)

// GenerateID returns a uniformly random seven digit id.
func GenerateID() string {
	return strconv.Itoa(minID + rand.IntN(maxID-minID+1))
}

func IsValidID(s string) bool {
	if len(s) != 7 || s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
