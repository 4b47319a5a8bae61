package yaz0

import (
	"math"

	"github.com/cockroachdb/errors"
)

const (
	// MinLevel stores every byte as a literal.
	MinLevel = 0
	// MaxLevel searches the whole window.
	MaxLevel = 9
	// DefaultLevel matches the effort of common tooling.
	DefaultLevel = 7

	hashBits = 15
	hashMask = 1<<hashBits - 1
)

// chainDepth is the number of candidates examined per position at a level.
func chainDepth(level int) int {
	if level <= MinLevel {
		return 0
	}
	return min(1<<(level+3), MaxDistance)
}

// Compress wraps src in a Yaz0 envelope. The level, 0 to 9, only changes
// how hard the match finder searches; every level is lossless.
func Compress(src []byte, level int) ([]byte, error) {
	return CompressWithAlignment(src, level, 0)
}

// CompressWithAlignment is Compress with the header's alignment hint set.
func CompressWithAlignment(src []byte, level int, alignment uint32) ([]byte, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, errors.Newf("yaz0: compression level %d outside [%d, %d]", level, MinLevel, MaxLevel)
	}
	if uint64(len(src)) > math.MaxUint32 {
		return nil, errors.Newf("yaz0: input of %d bytes exceeds the 32-bit size field", len(src))
	}
	h := Header{Magic: Magic, Size: uint32(len(src)), Alignment: alignment}
	// Worst case is one flag byte per eight literals.
	out := make([]byte, 0, HeaderSize+len(src)+len(src)/8+1)
	out = h.appendTo(out)

	e := newEncoder(src, chainDepth(level), level >= 6)
	return e.encode(out), nil
}

type encoder struct {
	src      []byte
	depth    int
	lazy     bool
	head     []int32
	prev     []int32
	inserted int // positions below this are in the hash chains
}

func newEncoder(src []byte, depth int, lazy bool) *encoder {
	e := &encoder{src: src, depth: depth, lazy: lazy}
	if depth > 0 {
		e.head = make([]int32, 1<<hashBits)
		for i := range e.head {
			e.head[i] = -1
		}
		e.prev = make([]int32, len(src))
	}
	return e
}

func (e *encoder) hash(i int) int {
	s := e.src
	return int((uint32(s[i])<<16|uint32(s[i+1])<<8|uint32(s[i+2]))*2654435761>>(32-hashBits)) & hashMask
}

// insertUpTo adds every position below p to the hash chains.
func (e *encoder) insertUpTo(p int) {
	for ; e.inserted < p; e.inserted++ {
		if e.inserted+MinMatch > len(e.src) {
			continue
		}
		h := e.hash(e.inserted)
		e.prev[e.inserted] = e.head[h]
		e.head[h] = int32(e.inserted)
	}
}

// match returns the longest back-reference for position p, or length 0.
func (e *encoder) match(p int) (length, dist int) {
	if e.depth == 0 || p+MinMatch > len(e.src) {
		return 0, 0
	}
	e.insertUpTo(p)
	limit := min(MaxMatch, len(e.src)-p)
	cand := int(e.head[e.hash(p)])
	for steps := e.depth; cand >= 0 && p-cand <= MaxDistance && steps > 0; steps-- {
		n := 0
		for n < limit && e.src[cand+n] == e.src[p+n] {
			n++
		}
		if n > length {
			length, dist = n, p-cand
			if n == limit {
				break
			}
		}
		cand = int(e.prev[cand])
	}
	if length < MinMatch {
		return 0, 0
	}
	return length, dist
}

func (e *encoder) encode(out []byte) []byte {
	var (
		flagPos int
		bit     = 0 // tokens in the current group
	)
	token := func() {
		if bit == 0 {
			flagPos = len(out)
			out = append(out, 0)
		}
	}
	next := func() { bit = (bit + 1) % 8 }

	src := e.src
	for p := 0; p < len(src); {
		length, dist := e.match(p)
		if length > 0 && e.lazy && length < MaxMatch {
			// Taking a literal now may expose a longer match one byte later.
			if nextLen, _ := e.match(p + 1); nextLen > length+1 {
				length = 0
			}
		}

		token()
		if length == 0 {
			out[flagPos] |= 0x80 >> bit
			out = append(out, src[p])
			p++
			next()
			continue
		}
		d := dist - 1
		if length < 0x12 {
			out = append(out, byte((length-2)<<4|d>>8), byte(d))
		} else {
			out = append(out, byte(d>>8), byte(d), byte(length-0x12))
		}
		p += length
		next()
	}
	return out
}
