package digest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/puzzlefs/go-puzzlefs/digest"
	"github.com/puzzlefs/go-puzzlefs/wireformat"
)

func TestParseRoundTrip(t *testing.T) {
	s := strings.Repeat("ab", 32)

	d, err := digest.Parse(s)
	require.NoError(t, err)
	require.Equal(t, s, d.String())
	require.Len(t, d.String(), 64)
}

func TestParseInvalidLength(t *testing.T) {
	for _, s := range []string{"", "ab", strings.Repeat("a", 63), strings.Repeat("a", 65)} {
		_, err := digest.Parse(s)
		require.ErrorIs(t, err, digest.ErrInvalidLength)
	}
}

func TestFromBlobRefLocalFails(t *testing.T) {
	_, err := digest.FromBlobRef(wireformat.BlobRef{Kind: wireformat.KindLocal})
	require.ErrorIs(t, err, wireformat.ErrLocalRef)
}

func TestFromBlobRefOther(t *testing.T) {
	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i)
	}

	d, err := digest.FromBlobRef(wireformat.BlobRef{Kind: wireformat.KindOther, Digest: raw})
	require.NoError(t, err)
	require.Equal(t, digest.Digest(raw), d)
}
