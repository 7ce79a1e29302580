package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitReassemble(t *testing.T) {
	cases := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"short", 5},
		{"exact", FragmentSize},
		{"multiple", 3 * FragmentSize},
		{"short last", 2*FragmentSize + 17},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := bytes.Repeat([]byte{0xa5}, tc.size)
			for i := range msg {
				msg[i] = byte(i)
			}

			frags := Split(msg)
			require.NotEmpty(t, frags)
			for _, frag := range frags {
				assert.Equal(t, frags[0].Total, frag.Total)
			}

			// Reassembly does not depend on delivery order.
			for i, j := 0, len(frags)-1; i < j; i, j = i+1, j-1 {
				frags[i], frags[j] = frags[j], frags[i]
			}

			got, err := Reassemble(frags)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestSplitShortLast(t *testing.T) {
	frags := Split(make([]byte, FragmentSize+1))
	require.Len(t, frags, 2)
	assert.Equal(t, uint8(FragmentSize), frags[0].Length)
	assert.Equal(t, uint8(1), frags[1].Length)
}

func TestReassembleErrors(t *testing.T) {
	_, err := Reassemble(nil)
	assert.Equal(t, ErrNoFragments, err)

	frags := Split(make([]byte, 3*FragmentSize))
	_, err = Reassemble(frags[:2])
	assert.Equal(t, ErrMissingFragment, err)

	_, err = Reassemble([]Fragment{frags[0], frags[0], frags[1]})
	assert.Equal(t, ErrDuplicateFragment, err)

	bad := frags[1]
	bad.Total = 7
	_, err = Reassemble([]Fragment{frags[0], bad})
	assert.Equal(t, ErrFragmentTotals, err)
}
