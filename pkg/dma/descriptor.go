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

// Package dma builds GN412X scatter-gather descriptor chains.
//
// A descriptor is seven little-endian 32-bit words. Descriptors of one chain
// live back to back in a physically contiguous buffer and each one points at
// the physical address of the next slot. The last descriptor has a zero next
// pointer and the not-last attribute cleared.
package dma

import (
	"encoding/binary"
	"fmt"
)

const (
	// DescriptorSize is the size of one descriptor on the wire
	DescriptorSize = 28
	// MaxChunk is the largest transfer a single descriptor may describe
	MaxChunk = 4096
	// CarrierSpace is the size of the card address space a descriptor can reach
	CarrierSpace = 1 << 32

	AttrNotLast      uint32 = 0x1
	AttrHostToDevice uint32 = 0x2
)

type Direction int

const (
	DeviceToHost Direction = iota
	HostToDevice
)

func (d Direction) String() string {
	if d == HostToDevice {
		return "write"
	}
	return "read"
}

// Attr returns the attribute bit selecting this direction
func (d Direction) Attr() uint32 {
	if d == HostToDevice {
		return AttrHostToDevice
	}
	return 0
}

// Descriptor field order matches the DMA register window of BAR0
type Descriptor struct {
	CarrierStart uint32
	HostStartL   uint32
	HostStartH   uint32
	Length       uint32
	HostNextL    uint32
	HostNextH    uint32
	Attr         uint32
}

func (d *Descriptor) HostStart() uint64 {
	return uint64(d.HostStartH)<<32 | uint64(d.HostStartL)
}

func (d *Descriptor) SetHostStart(addr uint64) {
	d.HostStartL = uint32(addr)
	d.HostStartH = uint32(addr >> 32)
}

func (d *Descriptor) HostNext() uint64 {
	return uint64(d.HostNextH)<<32 | uint64(d.HostNextL)
}

func (d *Descriptor) SetHostNext(addr uint64) {
	d.HostNextL = uint32(addr)
	d.HostNextH = uint32(addr >> 32)
}

func (d *Descriptor) Last() bool {
	return d.Attr&AttrNotLast == 0
}

func (d *Descriptor) Direction() Direction {
	if d.Attr&AttrHostToDevice != 0 {
		return HostToDevice
	}
	return DeviceToHost
}

// Words returns the descriptor in register window order
func (d *Descriptor) Words() [7]uint32 {
	return [7]uint32{d.CarrierStart, d.HostStartL, d.HostStartH, d.Length, d.HostNextL, d.HostNextH, d.Attr}
}

// Put encodes the descriptor into the first DescriptorSize bytes of buf
func (d *Descriptor) Put(buf []byte) {
	for i, w := range d.Words() {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], w)
	}
}

// DescriptorFromBytes decodes the first DescriptorSize bytes of buf
func DescriptorFromBytes(buf []byte) Descriptor {
	return DescriptorFromWords([7]uint32{
		binary.LittleEndian.Uint32(buf[0:4]),
		binary.LittleEndian.Uint32(buf[4:8]),
		binary.LittleEndian.Uint32(buf[8:12]),
		binary.LittleEndian.Uint32(buf[12:16]),
		binary.LittleEndian.Uint32(buf[16:20]),
		binary.LittleEndian.Uint32(buf[20:24]),
		binary.LittleEndian.Uint32(buf[24:28]),
	})
}

func DescriptorFromWords(w [7]uint32) Descriptor {
	return Descriptor{
		CarrierStart: w[0],
		HostStartL:   w[1],
		HostStartH:   w[2],
		Length:       w[3],
		HostNextL:    w[4],
		HostNextH:    w[5],
		Attr:         w[6],
	}
}

func (d Descriptor) String() string {
	return fmt.Sprintf("carrier=0x%08x host=0x%016x len=%d next=0x%016x attr=0x%x",
		d.CarrierStart, d.HostStart(), d.Length, d.HostNext(), d.Attr)
}
