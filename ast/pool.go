package ast

import (
	"sync"
)

// Pools of leaf buffers used while flattening fragment trees.
var (
	fragmentSlicePool32 = sync.Pool{
		New: func() any {
			s := make([]Fragment, 0, 32)
			return &s
		},
	}

	fragmentSlicePool256 = sync.Pool{
		New: func() any {
			s := make([]Fragment, 0, 256)
			return &s
		},
	}
)

// GetFragmentSlice returns an empty buffer with room for about size leaves.
func GetFragmentSlice(size int) *[]Fragment {
	var s *[]Fragment
	if size <= 32 {
		s = fragmentSlicePool32.Get().(*[]Fragment)
	} else {
		s = fragmentSlicePool256.Get().(*[]Fragment)
	}
	*s = (*s)[:0]
	return s
}

// PutFragmentSlice returns a buffer to its pool. The caller must not keep
// references to the buffer's contents.
func PutFragmentSlice(s *[]Fragment) {
	clear(*s)
	*s = (*s)[:0]
	if cap(*s) <= 32 {
		fragmentSlicePool32.Put(s)
	} else if cap(*s) <= 4096 {
		fragmentSlicePool256.Put(s)
	}
}

// FlattenToSlice flattens root into a freshly allocated, exactly sized slice.
func FlattenToSlice(root Fragment, h PrecedenceHandler) []Fragment {
	if root == nil {
		return nil
	}
	buf := GetFragmentSlice(32)
	*buf = root.Flatten(*buf, h)
	out := make([]Fragment, len(*buf))
	copy(out, *buf)
	PutFragmentSlice(buf)
	return out
}
