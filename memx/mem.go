/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package memx provides a monotonically extendable byte region with a
// stable base address, for use as the backing store of an allocator.
//
// The full capacity is reserved once at construction time, so pointers
// derived from Base remain valid for the life of the Heap no matter how
// often the heap is extended or reset.
package memx

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// ErrNoMem is returned by Extend when growing the heap would exceed the
// capacity reserved at construction time.
var ErrNoMem = errors.New("memx: heap exhausted")

// Heap is a growable region of raw bytes. The region grows from zero up
// to the reserved capacity, one Extend at a time, and never shrinks.
//
// Heap is not goroutine-safe.
type Heap struct {
	slab []byte
	base unsafe.Pointer

	// brk is the current logical heap size; slab[:brk] is live.
	brk int
}

// NewHeap reserves max bytes and returns an empty heap over them.
// max must be a positive multiple of 8.
func NewHeap(max int) (*Heap, error) {
	if max <= 0 {
		return nil, fmt.Errorf("memx: capacity must be positive, got %d", max)
	}
	if max%8 != 0 {
		return nil, fmt.Errorf("memx: capacity must be a multiple of 8, got %d", max)
	}
	// The slab is handed out unzeroed; callers format what they use.
	slab := dirtmake.Bytes(max, max)
	return &Heap{
		slab: slab,
		base: unsafe.Pointer(&slab[0]),
	}, nil
}

// Reset discards the live region. The reservation is kept, so Base is
// unchanged and previously returned offsets simply become dead.
func (h *Heap) Reset() {
	h.brk = 0
}

// Extend grows the heap by delta bytes and returns the offset of the
// first new byte. The new bytes are NOT zeroed.
func (h *Heap) Extend(delta int) (int, error) {
	if delta < 0 {
		return 0, fmt.Errorf("memx: negative extend %d", delta)
	}
	if h.brk+delta > len(h.slab) {
		return 0, ErrNoMem
	}
	old := h.brk
	h.brk += delta
	return old, nil
}

// Lo returns the offset of the first live byte, which is always 0.
func (h *Heap) Lo() int { return 0 }

// Hi returns the offset of the last live byte, or -1 for an empty heap.
func (h *Heap) Hi() int { return h.brk - 1 }

// Size returns the number of live bytes.
func (h *Heap) Size() int { return h.brk }

// Cap returns the reserved capacity.
func (h *Heap) Cap() int { return len(h.slab) }

// Base returns a pointer to offset 0. It is stable for the life of the
// Heap.
func (h *Heap) Base() unsafe.Pointer { return h.base }

// Bytes returns the live region as a slice. The slice aliases the heap;
// it stays valid across Extend but its length is fixed at call time.
func (h *Heap) Bytes() []byte { return h.slab[:h.brk] }
