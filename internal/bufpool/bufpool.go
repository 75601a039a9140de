// Package bufpool provides size-classed byte slices for serialising
// responses, so steady traffic does not allocate a fresh buffer per
// connection.
//
// Most responses (status line, a few headers, a short body) fit in the
// small class. File downloads use the medium and large classes. Anything
// bigger than Large is allocated directly and never pooled.
package bufpool

import (
	"sync"
)

const (
	// Small fits a response with no body or an echo/user-agent body.
	Small = 4 << 10 // 4KB

	// Medium fits typical file bodies.
	Medium = 64 << 10 // 64KB

	// Large is the biggest buffer kept in a pool.
	Large = 1 << 20 // 1MB
)

type pool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

func newClass(size int) sync.Pool {
	return sync.Pool{
		New: func() any {
			buf := make([]byte, size)
			return &buf
		},
	}
}

var global = &pool{
	small:  newClass(Small),
	medium: newClass(Medium),
	large:  newClass(Large),
}

// Get returns a slice of length size backed by a pooled buffer when size
// fits a class. Pair every Get with Put.
func Get(size int) []byte {
	if size < 0 {
		size = 0
	}

	var bufPtr *[]byte
	switch {
	case size <= Small:
		bufPtr = global.small.Get().(*[]byte)
	case size <= Medium:
		bufPtr = global.medium.Get().(*[]byte)
	case size <= Large:
		bufPtr = global.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	return (*bufPtr)[:size]
}

// Put returns buf to its class. Slices whose capacity matches no class
// (oversized, or grown past their class by append) are left to the GC.
// buf must not be used after Put.
func Put(buf []byte) {
	if buf == nil {
		return
	}

	full := buf[:cap(buf)]
	switch cap(buf) {
	case Small:
		global.small.Put(&full)
	case Medium:
		global.medium.Put(&full)
	case Large:
		global.large.Put(&full)
	}
}
