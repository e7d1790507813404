package refcode

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// DefaultLength of booking reference codes
const DefaultLength = 10

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrInvalidLength returned for non-positive lengths
var ErrInvalidLength = errors.New("refcode: length must be positive")

// Generate returns a random upper-case alphanumeric code of the given length.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
