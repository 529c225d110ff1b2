package entry

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Domain prefix for content-addressed keys. The version suffix enables
// future format migration; the null separator prevents domain/payload
// boundary ambiguity.
const hashDomain = "cmdq/action/v1"

// ErrUnknownAlgorithm reports that no hashing capability matches the
// configured name. Commands that derive stdin keys fail fast on it.
var ErrUnknownAlgorithm = errors.New("entry: unknown hash algorithm")

// Hasher is the single injected hashing capability. Which algorithm
// backs it is an implementation detail, not a contract: callers may rely
// only on determinism and collision resistance for this workload.
type Hasher interface {
	// Name identifies the backing algorithm.
	Name() string
	// Sum returns the hex digest of payload under the domain prefix.
	Sum(payload []byte) string
}

// algorithms is the probe order. The first name is the default; the
// remaining ones are equivalent substitutes selectable by configuration.
var algorithms = []string{"sha256", "sha1", "xxhash64"}

// Algorithms lists the supported algorithm names in probe order.
func Algorithms() []string {
	out := make([]string, len(algorithms))
	copy(out, algorithms)
	return out
}

// NewHasher selects the hashing capability by name. An empty name picks
// the first available algorithm; an unrecognized name is
// ErrUnknownAlgorithm.
func NewHasher(name string) (Hasher, error) {
	if name == "" {
		name = algorithms[0]
	}
	switch name {
	case "sha256":
		return sha256Hasher{}, nil
	case "sha1":
		return sha1Hasher{}, nil
	case "xxhash64":
		return xxhash64Hasher{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

type sha256Hasher struct{}

func (sha256Hasher) Name() string { return "sha256" }

func (sha256Hasher) Sum(payload []byte) string {
	h := sha256.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

type sha1Hasher struct{}

func (sha1Hasher) Name() string { return "sha1" }

func (sha1Hasher) Sum(payload []byte) string {
	h := sha1.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

type xxhash64Hasher struct{}

func (xxhash64Hasher) Name() string { return "xxhash64" }

func (xxhash64Hasher) Sum(payload []byte) string {
	h := xxhash.New()
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write(payload)
	return fmt.Sprintf("%016x", h.Sum64())
}
