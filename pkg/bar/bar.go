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

// Package bar provides word access to a memory mapped PCIe BAR.
//
// Offsets are 32-bit word offsets from the start of the region. Every access
// is a single atomic load or store, so accesses are never merged, split or
// reordered by the compiler or the CPU. Offsets are checked against the
// mapped size only in builds tagged specdebug; release builds do not check.
package bar

import (
	"sync/atomic"
	"unsafe"
)

const WordSize = 4

type Op int

const (
	OpRead Op = iota
	OpWrite
)

func (op Op) String() string {
	if op == OpWrite {
		return "write"
	}
	return "read"
}

// TraceFunc is called after every register access when set
type TraceFunc func(bar int, op Op, off uint32, value uint32)

// Region is a mapped BAR
type Region struct {
	index int
	mem   []byte
	base  unsafe.Pointer
	words uint32
	bus   TraceFunc
	trace TraceFunc
}

// New wraps mapped memory of BAR index. The memory must stay mapped for the
// lifetime of the Region.
func New(index int, mem []byte) *Region {
	r := &Region{
		index: index,
		mem:   mem,
		words: uint32(len(mem) / WordSize),
	}
	if len(mem) > 0 {
		r.base = unsafe.Pointer(&mem[0])
	}
	return r
}

// Index returns the BAR number
func (r *Region) Index() int { return r.index }

// Size returns the size of the region in bytes
func (r *Region) Size() int { return len(r.mem) }

// Words returns the number of addressable words
func (r *Region) Words() uint32 { return r.words }

// SetTrace installs fn as access tracer, nil disables tracing
func (r *Region) SetTrace(fn TraceFunc) { r.trace = fn }

// SetBus installs the device side of the bus. It sees every access before
// the tracer and may change the region, e.g. to clear a register on read.
func (r *Region) SetBus(fn TraceFunc) { r.bus = fn }

func (r *Region) access(op Op, off uint32, value uint32) {
	if r.bus != nil {
		r.bus(r.index, op, off, value)
	}
	if r.trace != nil {
		r.trace(r.index, op, off, value)
	}
}

func (r *Region) word(off uint32) *uint32 {
	checkOffset(r, off, 1)
	return (*uint32)(unsafe.Add(r.base, uintptr(off)*WordSize))
}

func (r *Region) ReadWord(off uint32) uint32 {
	v := atomic.LoadUint32(r.word(off))
	r.access(OpRead, off, v)
	return v
}

func (r *Region) WriteWord(off uint32, value uint32) {
	atomic.StoreUint32(r.word(off), value)
	r.access(OpWrite, off, value)
}

// MaskWrite clears the bits in mask and sets the bits in value.
// The read and the write are two separate bus transactions.
func (r *Region) MaskWrite(off uint32, mask uint32, value uint32) {
	tmp := r.ReadWord(off)
	tmp &^= mask
	tmp |= value
	r.WriteWord(off, tmp)
}

// ReadBlock reads len(buf) consecutive words starting at off
func (r *Region) ReadBlock(off uint32, buf []uint32) {
	checkOffset(r, off, len(buf))
	for i := range buf {
		buf[i] = r.ReadWord(off + uint32(i))
	}
}

// WriteBlock writes buf to consecutive words starting at off
func (r *Region) WriteBlock(off uint32, buf []uint32) {
	checkOffset(r, off, len(buf))
	for i, v := range buf {
		r.WriteWord(off+uint32(i), v)
	}
}
