package wire

import (
	"errors"
	"fmt"
)

// FragmentSize is the fixed data capacity of one fragment. All fragments of a
// session are uniformly sized records; Length marks how much of Data is used.
const FragmentSize = 128

// Errors returned by Reassemble.
var (
	ErrNoFragments       = errors.New("no fragments to reassemble")
	ErrMissingFragment   = errors.New("fragment set is incomplete")
	ErrFragmentTotals    = errors.New("fragments disagree on total count")
	ErrFragmentTooLong   = errors.New("fragment length exceeds capacity")
	ErrDuplicateFragment = errors.New("duplicate fragment index")
)

// Fragment is one piece of a larger application message. Drones forward
// fragments; only true endpoints reassemble them.
type Fragment struct {
	Index  uint64
	Total  uint64
	Length uint8
	Data   [FragmentSize]byte
}

// Type implements Payload.
func (f Fragment) Type() PacketType { return PacketMsgFragment }

func (f Fragment) String() string {
	return fmt.Sprintf("Fragment(%d/%d len=%d)", f.Index+1, f.Total, f.Length)
}

// Split cuts a message into fixed-size fragments. A non-multiple-of-capacity
// message yields a short last fragment; an empty message yields one empty
// fragment so the session is still observable on the wire.
func Split(msg []byte) []Fragment {
	total := uint64(len(msg)+FragmentSize-1) / FragmentSize
	if total == 0 {
		total = 1
	}

	frags := make([]Fragment, 0, total)
	for i := uint64(0); i < total; i++ {
		frag := Fragment{Index: i, Total: total}
		chunk := msg[i*FragmentSize:]
		if len(chunk) > FragmentSize {
			chunk = chunk[:FragmentSize]
		}
		frag.Length = uint8(copy(frag.Data[:], chunk))
		frags = append(frags, frag)
	}

	return frags
}

// Reassemble restores the original message from a complete fragment set.
// Order of the input is not significant.
func Reassemble(frags []Fragment) ([]byte, error) {
	if len(frags) == 0 {
		return nil, ErrNoFragments
	}

	total := frags[0].Total
	byIndex := make(map[uint64]Fragment, len(frags))
	for _, frag := range frags {
		if frag.Total != total {
			return nil, ErrFragmentTotals
		}
		if int(frag.Length) > FragmentSize {
			return nil, ErrFragmentTooLong
		}
		if _, ok := byIndex[frag.Index]; ok {
			return nil, ErrDuplicateFragment
		}
		byIndex[frag.Index] = frag
	}

	if uint64(len(byIndex)) != total {
		return nil, ErrMissingFragment
	}

	msg := make([]byte, 0, total*FragmentSize)
	for i := uint64(0); i < total; i++ {
		frag, ok := byIndex[i]
		if !ok {
			return nil, ErrMissingFragment
		}
		msg = append(msg, frag.Data[:frag.Length]...)
	}

	return msg, nil
}
