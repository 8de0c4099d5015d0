package anchor

import (
	"crypto/sha256"
	"fmt"
)

func GetDiscriminator(namespace string, name string) []byte {
	preimage := fmt.Sprintf("%s:%s", namespace, name)
	hash := sha256.Sum256([]byte(preimage))
	return hash[:8]
}

// InstructionDiscriminator returns the 8-byte discriminator for a global
// instruction as a fixed array, usable as a map key.
func InstructionDiscriminator(name string) [8]byte {
	var out [8]byte
	copy(out[:], GetDiscriminator("global", name))
	return out
}

// DiscriminatorSet recognizes a program's swap-family instructions by their
// leading 8 bytes.
type DiscriminatorSet map[[8]byte]string

// NewDiscriminatorSet derives a set from instruction names.
func NewDiscriminatorSet(names ...string) DiscriminatorSet {
	set := make(DiscriminatorSet, len(names))
	for _, name := range names {
		set[InstructionDiscriminator(name)] = name
	}
	return set
}

// Match returns the instruction name for data beginning with a known
// discriminator.
func (s DiscriminatorSet) Match(data []byte) (string, bool) {
	if len(data) < 8 {
		return "", false
	}
	var key [8]byte
	copy(key[:], data[:8])
	name, ok := s[key]
	return name, ok
}
