package links

import (
	"crypto/rand"
	"regexp"
)

// keyAlphabet excludes visually ambiguous characters (0/O, 1/l/I) so codes
// survive being read aloud or copied by hand.
const keyAlphabet = "ABCDEFGHJKMNPQRSTWXYZabcdefhijkmnprstwxyz2345678"

const (
	DefaultKeyLength   = 6
	MinCustomKeyLength = 3
	MaxCustomKeyLength = 20

	// maxAllocAttempts bounds random-key allocation. Collisions at 6 chars
	// over a 48-symbol alphabet are vanishingly rare, but allocation must
	// fail closed rather than spin.
	maxAllocAttempts = 10
)

var customKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateCustomKey checks the caller-chosen code against the charset and
// length bounds. It says nothing about availability.
func ValidateCustomKey(key string) error {
	if len(key) < MinCustomKeyLength || len(key) > MaxCustomKeyLength {
		return ErrInvalidKey
	}
	if !customKeyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

// CryptoKeyGenerator draws codes from the restricted alphabet using
// crypto/rand.
type CryptoKeyGenerator struct{}

func NewCryptoKeyGenerator() *CryptoKeyGenerator { return &CryptoKeyGenerator{} }

func (g *CryptoKeyGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultKeyLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i := range buf {
		out[i] = keyAlphabet[int(buf[i])%len(keyAlphabet)]
	}

	return string(out), nil
}
