//go:build linux

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

package pcidriver

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	iocMagic = 'p'
	iocBase  = 0x60

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | iocMagic<<8 | (iocBase + nr)
}

var ptrSize = unsafe.Sizeof(uintptr(0))

var (
	iocMmapMode    = ioc(iocNone, 0, 0)
	iocMmapArea    = ioc(iocNone, 1, 0)
	iocKmemAlloc   = ioc(iocRead|iocWrite, 2, ptrSize)
	iocKmemFree    = ioc(iocWrite, 3, ptrSize)
	iocKmemSync    = ioc(iocWrite, 4, ptrSize)
	iocUmemSgmap   = ioc(iocRead|iocWrite, 5, ptrSize)
	iocUmemSgunmap = ioc(iocWrite, 6, ptrSize)
	iocUmemSgget   = ioc(iocRead|iocWrite, 7, ptrSize)
	iocUmemSync    = ioc(iocWrite, 8, ptrSize)
	iocWaitIrq     = ioc(iocNone, 9, 0)
	iocClearIoq    = ioc(iocNone, 10, 0)
	iocPciInfo     = ioc(iocRead|iocWrite, 11, ptrSize)
)

// mmap modes
const (
	mmapPci  = 0
	mmapKmem = 1
)

// DMA directions understood by the driver
const (
	dmaBidirectional = 0
	dmaToDevice      = 1
	dmaFromDevice    = 2
)

const sgNonMerged = 0

// The structs below mirror the pciDriver 0.x header (/dev/fpga<N>, ioctl
// magic 'p'). The pcilib fork of the driver declares kmem_handle_t with
// unsigned long size and more fields, its ioctl set is not supported here.

// kmem_handle_t {unsigned long pa; unsigned int size; int handle_id}
type kmemHandle struct {
	Pa       uint64
	Size     uint32
	HandleID int32
}

// kmem_sync_t {kmem_handle_t handle; int dir}
type kmemSync struct {
	Handle kmemHandle
	Dir    int32
	_      int32
}

// umem_handle_t {unsigned long vma; unsigned long size; int handle_id; int dir}
type umemHandle struct {
	Vma      uint64
	Size     uint64
	HandleID int32
	Dir      int32
}

// umem_sgentry_t {unsigned long addr; unsigned long size}
type umemSGEntry struct {
	Addr uint64
	Size uint64
}

// umem_sglist_t {int handle_id; int type; int nents; umem_sgentry_t *sg}
type umemSGList struct {
	HandleID int32
	Type     int32
	Nents    int32
	_        int32
	SG       *umemSGEntry
}

// pci_board_info, unsigned short ids then unsigned long BAR tables
type pciInfo struct {
	VendorID      uint16
	DeviceID      uint16
	Bus           uint16
	Slot          uint16
	Devfn         uint16
	InterruptPin  uint8
	InterruptLine uint8
	Irq           uint32
	BarStart      [6]uint64
	BarLength     [6]uint64
}

func ioctl(fd int, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
