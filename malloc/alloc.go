// Package malloc implements a best-fit dynamic allocator over a raw,
// monotonically extendable byte heap.
//
// Every block carries a boundary tag (an 8-byte size word with the top
// bit as the allocated flag) at both ends, so physical neighbors are
// reachable in O(1) for eager coalescing. Free blocks are threaded into
// a doubly-linked list through their own payloads. Allocation is
// best-fit with splitting; freeing coalesces with both neighbors.
//
// IMPORTANT: this package is NOT goroutine-safe. External
// synchronization is required for concurrent use.
package malloc

import "unsafe"

// Memory is the heap provider consumed by Allocator. *memx.Heap
// satisfies it. Base must return the same pointer for the life of the
// provider; the region it addresses grows through Extend and never
// moves.
type Memory interface {
	// Reset discards the live region.
	Reset()
	// Extend grows the region by delta bytes and returns the offset of
	// the first new byte.
	Extend(delta int) (int, error)
	// Size returns the current number of live bytes.
	Size() int
	// Base returns a stable pointer to offset 0.
	Base() unsafe.Pointer
}

// Allocator manages variable-size blocks inside a Memory region.
//
// Allocator is not goroutine-safe.
type Allocator struct {
	mem  Memory
	base unsafe.Pointer

	// freeHead is the head of the free list, or noBlock.
	freeHead int
}

// New returns an initialized allocator over mem. The provider is reset;
// any blocks previously handed out through it are dead.
func New(mem Memory) (*Allocator, error) {
	a := &Allocator{mem: mem}
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Init resets the provider and the allocator state. The heap is empty
// afterwards; the first Alloc grows it.
func (a *Allocator) Init() error {
	a.mem.Reset()
	a.base = a.mem.Base()
	a.freeHead = noBlock
	if offsetPad != 0 {
		if _, err := a.mem.Extend(offsetPad); err != nil {
			return err
		}
	}
	return nil
}

// Reset is an alias for Init for callers that reuse the allocator.
func (a *Allocator) Reset() {
	// Init only fails when the pad does not fit, and the pad fit before.
	_ = a.Init()
}

// Alloc allocates a block with a payload of at least size bytes and
// returns it as a slice of length size. The slice capacity is the full
// payload. Returns nil when size <= 0 or the provider is exhausted.
//
// The returned payload is always 8-byte aligned.
func (a *Allocator) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}

	best := a.bestFit(size)
	if best == noBlock {
		b, linked, err := a.extend(size)
		if err != nil {
			return nil
		}
		if linked {
			a.unlink(b)
		}
		a.setAlloc(b)
		return a.payload(b, size)
	}

	want := blockSizeFor(size)
	a.unlink(best)
	if leftover := a.blockSize(best) - want; leftover >= blockMin {
		a.split(best, want)
		a.insertHead(best + want)
	}
	a.setAlloc(best)
	return a.payload(best, size)
}

// bestFit scans the free list for the block with the smallest payload
// that still fits size bytes. Ties go to the first block encountered.
// The scan terminates on the null link, never on a heap-bound compare.
func (a *Allocator) bestFit(size int) int {
	best, bestInner := noBlock, 0
	for b := a.freeHead; b != noBlock; b = a.nextFree(b) {
		if in := a.innerSize(b); in >= size && (best == noBlock || in < bestInner) {
			best, bestInner = b, in
		}
	}
	return best
}

// Free returns a block to the allocator and eagerly coalesces it with
// free physical neighbors. block must be the slice returned by Alloc or
// Realloc, unresliced. A nil block is a no-op, as is freeing a block
// whose allocated bit is already clear.
func (a *Allocator) Free(block []byte) {
	if cap(block) == 0 {
		return
	}
	// Read the data pointer through the slice header so zero-length
	// slices of a live block are still freeable.
	dataPtr := *(*uintptr)(unsafe.Pointer(&block))
	b := int(dataPtr-uintptr(a.base)) - wordSize
	if b < offsetPad || b >= a.mem.Size() {
		panic("malloc: block not in heap")
	}
	if b%alignment != 0 {
		panic("malloc: misaligned block")
	}
	a.freeAt(b)
}

// freeAt frees the block at offset b.
//
// Coalescing order matters: the successor is absorbed first, then the
// result is absorbed into the predecessor. The surviving block is
// always the leftmost one, so its address stays a stable key for the
// free-list slot it ends up occupying.
func (a *Allocator) freeAt(b int) {
	if !a.isAlloc(b) {
		// Double free. The allocated bit makes it detectable; tolerate
		// it so a buggy client degrades instead of corrupting the heap.
		return
	}
	a.clearAlloc(b)

	heapSize := a.mem.Size()
	linked := false
	if rt := a.nextBlock(b); rt < heapSize && !a.isAlloc(rt) {
		// b takes over rt's list slot, then absorbs it.
		a.replaceNode(rt, b)
		a.merge(b, rt)
		linked = true
	}
	if b > offsetPad {
		if lt := a.prevBlock(b); !a.isAlloc(lt) {
			if linked {
				a.unlink(b)
			}
			// lt keeps its own list slot.
			a.merge(lt, b)
			return
		}
	}
	if !linked {
		a.insertHead(b)
	}
}

// Realloc resizes a block. A nil block behaves like Alloc; size <= 0
// behaves like Free and returns nil. Otherwise a new block is
// allocated, the common prefix of the payloads is copied over, and the
// old block is freed. Returns nil and leaves the old block intact when
// the provider is exhausted.
func (a *Allocator) Realloc(block []byte, size int) []byte {
	if cap(block) == 0 {
		return a.Alloc(size)
	}
	if size <= 0 {
		a.Free(block)
		return nil
	}
	nb := a.Alloc(size)
	if nb == nil {
		return nil
	}
	// copy stops at len(nb) == size, so this moves min(old inner, size).
	copy(nb, block[:cap(block)])
	a.Free(block)
	return nb
}

// extend grows the heap to fit a payload of at least size bytes and
// returns the offset of the resulting free block, plus whether that
// block is already on the free list.
//
// When the heap's last block is free it is stretched in place: the heap
// grows only by the deficit, the new region is formatted as a temporary
// block and merged into the tail, and the tail keeps its list slot.
// Otherwise a fresh block is formatted at the old heap end and returned
// unlisted, since the caller allocates it immediately.
func (a *Allocator) extend(size int) (int, bool, error) {
	if heapSize := a.mem.Size(); heapSize > offsetPad {
		last := heapSize - int(a.word(heapSize-wordSize)&sizeMask)
		if !a.isAlloc(last) {
			deficit := align8(size + 2*wordSize - a.blockSize(last))
			off, err := a.mem.Extend(deficit)
			if err != nil {
				return noBlock, false, err
			}
			a.format(off, deficit)
			a.merge(last, off)
			return last, true, nil
		}
	}
	bsize := blockSizeFor(size)
	off, err := a.mem.Extend(bsize)
	if err != nil {
		return noBlock, false, err
	}
	a.format(off, bsize)
	return off, false, nil
}

// split bisects block b into a front block of exactly firstSize bytes
// and a trailing block carrying the rest. Both come out with clear
// allocated bits; the caller owns all list bookkeeping.
// Requires blockSize(b) >= firstSize + blockMin.
func (a *Allocator) split(b, firstSize int) {
	total := a.blockSize(b)
	a.format(b, firstSize)
	a.format(b+firstSize, total-firstSize)
}

// merge fuses b1 with its physical successor b2. Both must be free. The
// combined size lands in b1's header and b2's footer; the interior tag
// words become payload. List bookkeeping is the caller's.
func (a *Allocator) merge(b1, b2 int) {
	size := uint64(a.blockSize(b1) + a.blockSize(b2))
	a.setWord(b1, size)
	a.setWord(b1+int(size)-wordSize, size)
}
