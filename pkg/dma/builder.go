/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package dma

import (
	"fmt"

	"jinr.ru/greenlab/go-spec/pkg/driver"
)

// ChunkCount returns the number of descriptors needed to describe entries
func ChunkCount(entries []driver.SGEntry) int {
	n := 0
	for _, e := range entries {
		n += int((uint64(e.Size) + MaxChunk - 1) / MaxChunk)
	}
	return n
}

func totalSize(entries []driver.SGEntry) uint64 {
	var n uint64
	for _, e := range entries {
		n += uint64(e.Size)
	}
	return n
}

// BufferSize returns the descriptor buffer size needed to describe entries
func BufferSize(entries []driver.SGEntry) int {
	return ChunkCount(entries) * DescriptorSize
}

// Build fills chain with descriptors for entries and syncs it for the device.
// The card side address starts at startOffset words and grows by the length
// of every chunk. Entries longer than MaxChunk are split, zero length entries
// are skipped. The card range must fit in the 32-bit carrier address space.
// It returns the number of descriptors written.
func Build(chain *Chain, entries []driver.SGEntry, startOffset uint32, dir Direction) (int, error) {
	count := ChunkCount(entries)
	if count == 0 {
		return 0, ErrEmptyChain
	}
	if count > chain.Cap() {
		return 0, fmt.Errorf("%w: need %d slots, have %d", ErrChainOverflow, count, chain.Cap())
	}

	carrier := uint64(startOffset) * 4
	if end := carrier + totalSize(entries); end > CarrierSpace {
		return 0, fmt.Errorf("%w: 0x%x bytes at 0x%x end at 0x%x", ErrOffsetRange, end-carrier, carrier, end)
	}
	j := 0
	for _, e := range entries {
		host := e.Addr
		for left := e.Size; left > 0; {
			length := left
			if length > MaxChunk {
				length = MaxChunk
			}
			d := Descriptor{
				CarrierStart: uint32(carrier),
				Length:       length,
				Attr:         AttrNotLast | dir.Attr(),
			}
			d.SetHostStart(host)
			d.SetHostNext(chain.SlotAddr(j + 1))
			chain.Put(j, d)

			carrier += uint64(length)
			host += MaxChunk
			left -= length
			j++
		}
	}

	last := chain.Get(j - 1)
	last.SetHostNext(0)
	last.Attr = dir.Attr()
	chain.Put(j-1, last)
	chain.n = j

	if err := chain.Sync(); err != nil {
		return 0, fmt.Errorf("sync descriptor buffer: %w", err)
	}
	return j, nil
}
