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

// Chain is an arena of descriptor slots over a physically contiguous buffer.
// Slot i lives at PhysAddr() + i*DescriptorSize.
type Chain struct {
	mem  driver.KernelMemory
	buf  []byte
	phys uint64
	n    int
}

// NewChain places a chain over a driver allocated descriptor buffer
func NewChain(mem driver.KernelMemory) *Chain {
	c := NewChainBuffer(mem.Buffer(), mem.PhysAddr())
	c.mem = mem
	return c
}

// NewChainBuffer places a chain over buf which the device sees at phys
func NewChainBuffer(buf []byte, phys uint64) *Chain {
	return &Chain{
		buf:  buf,
		phys: phys,
	}
}

// Cap is the number of slots the buffer holds
func (c *Chain) Cap() int {
	return len(c.buf) / DescriptorSize
}

// Len is the number of descriptors of the last built chain
func (c *Chain) Len() int {
	return c.n
}

func (c *Chain) PhysAddr() uint64 {
	return c.phys
}

func (c *Chain) SlotAddr(i int) uint64 {
	return c.phys + uint64(i)*DescriptorSize
}

func (c *Chain) Put(i int, d Descriptor) {
	d.Put(c.slot(i))
}

func (c *Chain) Get(i int) Descriptor {
	return DescriptorFromBytes(c.slot(i))
}

// Head returns the first descriptor, the one installed into the DMA register window
func (c *Chain) Head() Descriptor {
	return c.Get(0)
}

// Descriptors returns a copy of the built chain in slot order
func (c *Chain) Descriptors() []Descriptor {
	out := make([]Descriptor, c.n)
	for i := range out {
		out[i] = c.Get(i)
	}
	return out
}

// Bytes returns the encoded chain
func (c *Chain) Bytes() []byte {
	return c.buf[:c.n*DescriptorSize]
}

// Sync makes the descriptor buffer visible to the device.
// Chains over a plain buffer have nothing to sync.
func (c *Chain) Sync() error {
	if c.mem == nil {
		return nil
	}
	return c.mem.Sync(driver.SyncToDevice)
}

func (c *Chain) slot(i int) []byte {
	if i < 0 || i >= c.Cap() {
		panic(fmt.Sprintf("descriptor slot %d out of range [0, %d)", i, c.Cap()))
	}
	off := i * DescriptorSize
	return c.buf[off : off+DescriptorSize]
}
