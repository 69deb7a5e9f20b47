package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// temporaryAlphabet omits look-alike characters (0/O, 1/l/I).
const temporaryAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#%+="

// MinTemporaryLength is the shortest temporary password Generate returns.
const MinTemporaryLength = 12

// Generate returns a random one-time password of the given length.
func Generate(length int) (string, error) {
	if length < MinTemporaryLength {
		length = MinTemporaryLength
	}
	max := big.NewInt(int64(len(temporaryAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out[i] = temporaryAlphabet[n.Int64()]
	}
	return string(out), nil
}
