package malloc

// Stats is a point-in-time snapshot of the heap.
type Stats struct {
	HeapSize    int // live provider bytes
	Blocks      int // total blocks
	UsedBlocks  int // blocks with the allocated bit set
	FreeBlocks  int // blocks on the free list
	FreeBytes   int // payload bytes available without growing the heap
	LargestFree int // largest single free payload
}

// Available returns the total payload bytes on the free list.
func (a *Allocator) Available() int {
	total := 0
	for b := a.freeHead; b != noBlock; b = a.nextFree(b) {
		total += a.innerSize(b)
	}
	return total
}

// Stats walks the heap and returns a snapshot.
func (a *Allocator) Stats() Stats {
	var s Stats
	s.HeapSize = a.mem.Size()
	for b := offsetPad; b < s.HeapSize; {
		size := a.blockSize(b)
		if size == 0 {
			break
		}
		s.Blocks++
		if a.isAlloc(b) {
			s.UsedBlocks++
		} else {
			s.FreeBlocks++
			inner := size - 2*wordSize
			s.FreeBytes += inner
			if inner > s.LargestFree {
				s.LargestFree = inner
			}
		}
		b += size
	}
	return s
}
