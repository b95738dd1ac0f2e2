package replay

import (
	"math/bits"

	"kvreplay/pkg/batch"
	"kvreplay/pkg/keyrange"
)

// bucketSet remembers the first bytes of every key and prefix written so far.
// An operation on the empty key or the empty prefix has no first byte, and
// marks the whole keyspace as touched instead.
type bucketSet struct {
	bits [4]uint64
	all  bool
}

func (s *bucketSet) add(b byte) {
	s.bits[b>>6] |= 1 << (b & 63)
}

func (s *bucketSet) has(b byte) bool {
	return s.bits[b>>6]&(1<<(b&63)) != 0
}

func (s *bucketSet) observe(b batch.Batch) {
	for _, op := range b.Operations {
		first, ok := op.FirstByte()
		if !ok {
			s.all = true
			continue
		}
		s.add(first)
	}
}

func (s *bucketSet) len() int {
	n := 0
	for _, w := range s.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// each calls fn for every recorded first byte in ascending order.
func (s *bucketSet) each(fn func(b byte)) {
	for i := 0; i < 256; i++ {
		if s.has(byte(i)) {
			fn(byte(i))
		}
	}
}

// bucket is the range of keys that begin with b.
func bucket(b byte) keyrange.Range {
	return keyrange.PrefixRange([]byte{b})
}
