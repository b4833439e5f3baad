// Package fairrand provides unbiased, unpredictable integers for anything a
// wager depends on: dice faces, digit assignment on a squares board.
//
// Every draw goes through crypto/rand. There is no seeded or math/rand
// fallback; if the entropy source fails the caller gets an error.
package fairrand

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Errors returned by Source implementations.
var (
	ErrEntropyUnavailable = errors.New("secure random source unavailable")
	ErrInvalidBound       = errors.New("bound must be positive")
)

// Source yields uniform integers in [0, n).
//
// Implementations must be safe for concurrent use.
type Source interface {
	Intn(n int) (int, error)
}

// CryptoSource draws from a cryptographically secure reader.
type CryptoSource struct {
	reader io.Reader
}

// NewCrypto returns a CryptoSource reading from r.
// A nil reader means crypto/rand.Reader.
func NewCrypto(r io.Reader) *CryptoSource {
	if r == nil {
		r = rand.Reader
	}
	return &CryptoSource{reader: r}
}

// Default is the process-wide source backed by crypto/rand.Reader.
var Default Source = NewCrypto(nil)

// Intn returns a uniform integer in [0, n).
// crypto/rand.Int samples by rejection, so bounds that do not divide the
// reader's range carry no modulo bias.
func (s *CryptoSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidBound
	}
	v, err := rand.Int(s.reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return int(v.Int64()), nil
}

// Shuffle returns a uniformly random permutation of 0..n-1 (Fisher-Yates).
func Shuffle(src Source, n int) ([]int, error) {
	if n < 0 {
		return nil, ErrInvalidBound
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := src.Intn(i + 1)
		if err != nil {
			return nil, err
		}
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}
