package malloc

import (
	"fmt"
	"io"

	"github.com/cloudwego/memalloc/hash/xfnv"
)

// Check walks the whole heap and the free list and returns a
// descriptive error for the first consistency violation found, or nil.
//
// Verified per block: matching header/footer tags, nonzero size (a zero
// size halts the walk instead of looping forever), minimum size,
// alignment of the payload, and no two adjacent free blocks. Verified
// globally: the walk covers the heap exactly, and the set of free
// blocks is exactly the set of list nodes, each linked bidirectionally
// and reachable once.
func (a *Allocator) Check() error {
	heapSize := a.mem.Size()

	freeBlocks := make(map[int]bool)
	prevWasFree := false
	for b := offsetPad; b < heapSize; {
		size := a.blockSize(b)
		if size == 0 {
			return fmt.Errorf("malloc: zero-size block at %#x", b)
		}
		if size%alignment != 0 || size < blockMin {
			return fmt.Errorf("malloc: bad block size %d at %#x", size, b)
		}
		if b+size > heapSize {
			return fmt.Errorf("malloc: block at %#x overruns heap end", b)
		}
		if hdr, ftr := a.word(b), a.word(b+size-wordSize); hdr != ftr {
			return fmt.Errorf("malloc: tag mismatch at %#x: header %#x footer %#x", b, hdr, ftr)
		}
		if (b+wordSize)%alignment != 0 {
			return fmt.Errorf("malloc: misaligned payload at %#x", b+wordSize)
		}
		free := !a.isAlloc(b)
		if free {
			if prevWasFree {
				return fmt.Errorf("malloc: adjacent free blocks at %#x", b)
			}
			freeBlocks[b] = true
		}
		prevWasFree = free
		b += size
	}

	// Forward list walk: every node is a free block, visited once, with
	// consistent back links.
	seen := make(map[int]bool, len(freeBlocks))
	tail := noBlock
	for n := a.freeHead; n != noBlock; n = a.nextFree(n) {
		if !freeBlocks[n] {
			return fmt.Errorf("malloc: free list node %#x is not a free block", n)
		}
		if seen[n] {
			return fmt.Errorf("malloc: free list revisits %#x", n)
		}
		seen[n] = true
		if a.prevFree(n) != tail {
			return fmt.Errorf("malloc: free list back link broken at %#x", n)
		}
		tail = n
	}
	if len(seen) != len(freeBlocks) {
		return fmt.Errorf("malloc: %d free blocks but %d list nodes", len(freeBlocks), len(seen))
	}
	return nil
}

// Dump writes a block-by-block picture of the heap to w, followed by
// the free list in link order. Intended for debugging; the output
// format is not stable.
func (a *Allocator) Dump(w io.Writer) {
	heapSize := a.mem.Size()
	fmt.Fprintf(w, "heap size %d\n", heapSize)
	for b := offsetPad; b < heapSize; {
		size := a.blockSize(b)
		state := "free"
		if a.isAlloc(b) {
			state = "used"
		}
		fmt.Fprintf(w, "  block %#06x size %-6d %s\n", b, size, state)
		if size == 0 {
			fmt.Fprintf(w, "  (zero-size block, walk halted)\n")
			return
		}
		b += size
	}
	fmt.Fprintf(w, "free list:")
	for n := a.freeHead; n != noBlock; n = a.nextFree(n) {
		fmt.Fprintf(w, " %#x", n)
	}
	fmt.Fprintf(w, "\n")
}

// Fingerprint digests the heap's block structure: each block's offset,
// size and allocated bit, combined order-insensitively. Two heaps with
// the same block multiset produce the same value regardless of free
// list order, which makes it useful for asserting that an operation
// sequence restored a prior heap shape.
func (a *Allocator) Fingerprint() uint64 {
	var sum uint64
	heapSize := a.mem.Size()
	for b := offsetPad; b < heapSize; {
		size := a.blockSize(b)
		if size == 0 {
			break
		}
		d := xfnv.New()
		d.AddUint64(uint64(b))
		d.AddUint64(a.word(b))
		sum ^= d.Sum64()
		b += size
	}
	return sum
}
