package ffm

import (
	"fmt"
	"unsafe"

	lru "github.com/hashicorp/golang-lru"

	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
)

// expandCacheSize bounds how many distinct (seed, shape) expansions of A
// are kept warm. Spec.md §5 notes that the expanded matrix A is shared
// read-only across requests and may be cached; a server handling queries
// against one frozen database only ever expands the same A, so a modest
// cache turns repeated PRG expansion into O(1) lookups after the first
// query.
const expandCacheSize = 8

var expandCache, _ = lru.New(expandCacheSize)

// Expand deterministically regenerates A = PRG(seed) as a rows-by-cols
// matrix over Z_mod, per spec.md §4.1's expand(seed, rows, cols) contract:
// identical seed and shape always produce an identical matrix, on any
// host. Repeated calls for the same (seed, rows, cols, mod, elem width)
// are served from an in-process LRU cache instead of re-running the PRG.
func Expand[T Elem](seed [csprng.SeedLen]byte, rows, cols, mod uint64) *Matrix[T] {
	var zero T
	key := fmt.Sprintf("%x:%d:%d:%d:%d", seed, rows, cols, mod, unsafe.Sizeof(zero))

	if cached, ok := expandCache.Get(key); ok {
		return cached.(*Matrix[T]).Copy()
	}

	prg := csprng.NewPRG(seed)
	out := UniformFromPRG[T](prg, rows, cols, mod)

	expandCache.Add(key, out.Copy())
	return out
}
