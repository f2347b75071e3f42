package malloc

// The free list is threaded through the payloads of free blocks: the
// first payload word holds the previous link, the second the next link.
// Links are absolute heap offsets with freeNil as null. The list is
// unordered; only reachability and bidirectional consistency matter.

func offToRef(b int) uint64 {
	if b == noBlock {
		return freeNil
	}
	return uint64(b)
}

func refToOff(v uint64) int {
	if v == freeNil {
		return noBlock
	}
	return int(v)
}

func (a *Allocator) prevFree(b int) int {
	return refToOff(a.word(b + wordSize))
}

func (a *Allocator) nextFree(b int) int {
	return refToOff(a.word(b + 2*wordSize))
}

func (a *Allocator) setPrevFree(b, p int) {
	a.setWord(b+wordSize, offToRef(p))
}

func (a *Allocator) setNextFree(b, n int) {
	a.setWord(b+2*wordSize, offToRef(n))
}

// insertHead prepends free block b to the list.
func (a *Allocator) insertHead(b int) {
	a.setPrevFree(b, noBlock)
	a.setNextFree(b, a.freeHead)
	if a.freeHead != noBlock {
		a.setPrevFree(a.freeHead, b)
	}
	a.freeHead = b
}

// unlink removes block b from the list. b must be on the list.
func (a *Allocator) unlink(b int) {
	p, n := a.prevFree(b), a.nextFree(b)
	if p != noBlock {
		a.setNextFree(p, n)
	}
	if n != noBlock {
		a.setPrevFree(n, p)
	}
	if a.freeHead == b {
		a.freeHead = n
	}
}

// replaceNode hands old's list position to b. Used when a merge lets a
// physically earlier block absorb old: b inherits old's links and old's
// neighbors (and the head, if old was the head) are rewired to b.
func (a *Allocator) replaceNode(old, b int) {
	p, n := a.prevFree(old), a.nextFree(old)
	a.setPrevFree(b, p)
	a.setNextFree(b, n)
	if p != noBlock {
		a.setNextFree(p, b)
	}
	if n != noBlock {
		a.setPrevFree(n, b)
	}
	if a.freeHead == old {
		a.freeHead = b
	}
}
