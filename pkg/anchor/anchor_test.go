package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownDiscriminators(t *testing.T) {
	// sha256("global:swap")[:8], as emitted by Anchor programs.
	assert.Equal(t, []byte{0xf8, 0xc6, 0x9e, 0x91, 0xe1, 0x75, 0x87, 0xc8}, GetDiscriminator("global", "swap"))
	// The DLMM swap2 variant.
	assert.Equal(t, [8]byte{0x41, 0x4b, 0x3f, 0x4c, 0xeb, 0x5b, 0x5b, 0x88}, InstructionDiscriminator("swap2"))
}

func TestDiscriminatorSetMatch(t *testing.T) {
	set := NewDiscriminatorSet("buy", "sell")

	data := append(GetDiscriminator("global", "sell"), 0xff, 0xff)
	name, ok := set.Match(data)
	require.True(t, ok)
	assert.Equal(t, "sell", name)

	_, ok = set.Match(GetDiscriminator("global", "swap"))
	assert.False(t, ok)

	_, ok = set.Match([]byte{1, 2})
	assert.False(t, ok)
}
