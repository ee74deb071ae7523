package schema

import (
	"math/bits"
	"strconv"
	"strings"
)

// MemberMask is a bit set over member indexes.
type MemberMask struct {
	words []uint64
}

func MaskOf(indexes ...int) MemberMask {
	var m MemberMask
	for _, i := range indexes {
		m.Set(i)
	}
	return m
}

func (m *MemberMask) Set(i int) {
	w := i / 64
	for len(m.words) <= w {
		m.words = append(m.words, 0)
	}
	m.words[w] |= 1 << uint(i%64)
}

func (m *MemberMask) Clear(i int) {
	w := i / 64
	if w < len(m.words) {
		m.words[w] &^= 1 << uint(i%64)
	}
}

func (m MemberMask) Has(i int) bool {
	w := i / 64
	return w < len(m.words) && m.words[w]&(1<<uint(i%64)) != 0
}

func (m MemberMask) Count() int {
	n := 0
	for _, w := range m.words {
		n += bits.OnesCount64(w)
	}
	return n
}

func (m MemberMask) IsEmpty() bool { return m.Count() == 0 }

func (m MemberMask) Equal(o MemberMask) bool {
	return m.Hex() == o.Hex()
}

func (m MemberMask) Clone() MemberMask {
	return MemberMask{words: append([]uint64(nil), m.words...)}
}

// Hex renders the mask as lower-case hex without leading zeros. It is used
// in cache keys, so equal masks always render equally.
func (m MemberMask) Hex() string {
	var sb strings.Builder
	for i := len(m.words) - 1; i >= 0; i-- {
		w := m.words[i]
		if sb.Len() == 0 {
			if w == 0 {
				continue
			}
			sb.WriteString(strconv.FormatUint(w, 16))
			continue
		}
		s := strconv.FormatUint(w, 16)
		sb.WriteString(strings.Repeat("0", 16-len(s)))
		sb.WriteString(s)
	}
	if sb.Len() == 0 {
		return "0"
	}
	return sb.String()
}

func (m MemberMask) String() string { return m.Hex() }
