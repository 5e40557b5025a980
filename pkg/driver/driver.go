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

// Package driver defines what the card controller needs from the kernel
// driver: opening a card, mapping its BARs, pinning memory for DMA and
// waiting for interrupts.
package driver

import (
	"context"
	"io"

	"jinr.ru/greenlab/go-spec/pkg/bar"
)

const PageSize = 4096

type SyncDirection int

const (
	SyncBidirectional SyncDirection = iota
	SyncToDevice
	SyncFromDevice
)

func (d SyncDirection) String() string {
	switch d {
	case SyncToDevice:
		return "to-device"
	case SyncFromDevice:
		return "from-device"
	}
	return "bidirectional"
}

// SGEntry is one physically contiguous segment of a pinned buffer
type SGEntry struct {
	Addr uint64
	Size uint32
}

// UserMemory is a caller buffer pinned for DMA.
// Close unpins the buffer and must be called exactly once.
type UserMemory interface {
	io.Closer
	SGEntries() []SGEntry
	Sync(dir SyncDirection) error
}

// KernelMemory is a physically contiguous buffer allocated by the driver.
// Close frees the buffer and must be called exactly once.
type KernelMemory interface {
	io.Closer
	Buffer() []byte
	PhysAddr() uint64
	Sync(dir SyncDirection) error
}

// Driver is the kernel driver of one card
type Driver interface {
	Open(id uint) error
	Close() error

	// MapBAR maps BAR number bar into the process
	MapBAR(bar int) ([]byte, error)
	UnmapBAR(bar int) error

	MapUserMemory(buf []byte) (UserMemory, error)
	AllocKernelMemory(size int) (KernelMemory, error)

	// WaitForInterrupt blocks until interrupt line fires or ctx is done.
	// On ctx expiry it returns ctx.Err().
	WaitForInterrupt(ctx context.Context, line int) error
	// ClearInterruptQueue drops interrupts buffered by the driver for line
	ClearInterruptQueue(line int) error
}

// BusModel is implemented by drivers that model register side effects
// themselves, such as a read-to-clear status word. Access is called after
// every BAR word access made through a mapped region.
type BusModel interface {
	Access(index int, op bar.Op, off uint32, value uint32)
}
