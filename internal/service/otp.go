package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	minTripCodeDigits = 4
	maxTripCodeDigits = 6
)

// GenerateTripCode returns a random numeric code of the given length,
// clamped to 4..6 digits. Leading zeros are allowed.
func GenerateTripCode(digits int) (string, error) {
	if digits < minTripCodeDigits {
		digits = minTripCodeDigits
	}
	if digits > maxTripCodeDigits {
		digits = maxTripCodeDigits
	}

	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate trip code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
