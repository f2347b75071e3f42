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

package memx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeap(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		wantErr bool
	}{
		{"valid", 1 << 20, false},
		{"valid_small", 8, false},
		{"zero", 0, true},
		{"negative", -8, true},
		{"not_multiple_of_8", 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHeap(tt.max)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.max, h.Cap())
			assert.Equal(t, 0, h.Size())
		})
	}
}

func TestExtend(t *testing.T) {
	h, err := NewHeap(64)
	require.NoError(t, err)

	off, err := h.Extend(16)
	require.NoError(t, err)
	assert.Equal(t, 0, off)
	assert.Equal(t, 16, h.Size())
	assert.Equal(t, 15, h.Hi())

	off, err = h.Extend(48)
	require.NoError(t, err)
	assert.Equal(t, 16, off)
	assert.Equal(t, 64, h.Size())

	// exhausted
	_, err = h.Extend(8)
	require.ErrorIs(t, err, ErrNoMem)
	assert.Equal(t, 64, h.Size())

	// zero-byte extend is fine even at capacity
	off, err = h.Extend(0)
	require.NoError(t, err)
	assert.Equal(t, 64, off)

	_, err = h.Extend(-1)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	h, err := NewHeap(128)
	require.NoError(t, err)

	base := h.Base()
	_, err = h.Extend(64)
	require.NoError(t, err)
	assert.Equal(t, base, h.Base())
	assert.Len(t, h.Bytes(), 64)

	h.Reset()
	assert.Equal(t, 0, h.Size())
	assert.Equal(t, -1, h.Hi())
	assert.Equal(t, 0, h.Lo())
	assert.Equal(t, base, h.Base())
	assert.Len(t, h.Bytes(), 0)

	// full capacity is available again
	off, err := h.Extend(128)
	require.NoError(t, err)
	assert.Equal(t, 0, off)
}

func TestBytesAliasesHeap(t *testing.T) {
	h, err := NewHeap(64)
	require.NoError(t, err)
	_, err = h.Extend(32)
	require.NoError(t, err)

	b := h.Bytes()
	b[0] = 0xAB
	assert.Equal(t, byte(0xAB), h.Bytes()[0])
}
