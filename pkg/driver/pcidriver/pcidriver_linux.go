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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"jinr.ru/greenlab/go-spec/pkg/driver"
	"jinr.ru/greenlab/go-spec/pkg/log"
)

var _ driver.Driver = (*Driver)(nil)

// Driver talks to the pciDriver kernel module through /dev/fpga<N>
type Driver struct {
	// mmap mode and area are per file descriptor state
	mu   sync.Mutex
	file *os.File
	fd   int
	info pciInfo
	bars map[int][]byte

	// at most one WAITI ioctl in flight per interrupt line
	waitMu  sync.Mutex
	waiters map[int]chan error
	// interrupt ioctls, replaced in tests
	irqctl func(fd int, req uintptr, line uintptr) error
}

func New() *Driver {
	return &Driver{
		bars:    map[int][]byte{},
		waiters: map[int]chan error{},
		irqctl:  ioctl,
	}
}

func (d *Driver) Open(id uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	path := fmt.Sprintf(DevicePattern, id)
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_SYNC, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return driver.ErrNoDevice{Card: id}
	}
	if err != nil {
		return err
	}
	fd := int(f.Fd())
	var info pciInfo
	if err := ioctlPtr(fd, iocPciInfo, unsafe.Pointer(&info)); err != nil {
		f.Close()
		return fmt.Errorf("read PCI info of %s: %w", path, err)
	}
	d.file = f
	d.fd = fd
	d.info = info
	log.Debug("Opened %s vendor 0x%04x device 0x%04x bus %d slot %d irq %d",
		path, info.VendorID, info.DeviceID, info.Bus, info.Slot, info.Irq)
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return driver.ErrNotOpen{What: "close"}
	}
	err := d.file.Close()
	d.file = nil
	d.waitMu.Lock()
	d.waiters = map[int]chan error{}
	d.waitMu.Unlock()
	return err
}

func (d *Driver) MapBAR(bar int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil, driver.ErrNotOpen{What: fmt.Sprintf("map BAR%d", bar)}
	}
	if bar < 0 || bar >= len(d.info.BarLength) || d.info.BarLength[bar] == 0 {
		return nil, driver.ErrBadBar{Bar: bar}
	}
	if err := ioctl(d.fd, iocMmapMode, mmapPci); err != nil {
		return nil, fmt.Errorf("select PCI mmap mode: %w", err)
	}
	if err := ioctl(d.fd, iocMmapArea, uintptr(bar)); err != nil {
		return nil, fmt.Errorf("select BAR%d: %w", bar, err)
	}
	mem, err := unix.Mmap(d.fd, 0, int(d.info.BarLength[bar]), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap BAR%d: %w", bar, err)
	}
	d.bars[bar] = mem
	return mem, nil
}

func (d *Driver) UnmapBAR(bar int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mem, ok := d.bars[bar]
	if !ok {
		return driver.ErrBadBar{Bar: bar}
	}
	delete(d.bars, bar)
	return unix.Munmap(mem)
}

func (d *Driver) AllocKernelMemory(size int) (driver.KernelMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil, driver.ErrNotOpen{What: "allocate kernel memory"}
	}
	h := kmemHandle{Size: uint32(size)}
	if err := ioctlPtr(d.fd, iocKmemAlloc, unsafe.Pointer(&h)); err != nil {
		return nil, fmt.Errorf("allocate %d bytes of kernel memory: %w", size, err)
	}
	if err := ioctl(d.fd, iocMmapMode, mmapKmem); err != nil {
		ioctlPtr(d.fd, iocKmemFree, unsafe.Pointer(&h))
		return nil, fmt.Errorf("select kernel memory mmap mode: %w", err)
	}
	buf, err := unix.Mmap(d.fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		ioctlPtr(d.fd, iocKmemFree, unsafe.Pointer(&h))
		return nil, fmt.Errorf("mmap kernel memory: %w", err)
	}
	return &kernelMemory{fd: d.fd, handle: h, buf: buf}, nil
}

func (d *Driver) MapUserMemory(buf []byte) (driver.UserMemory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil, driver.ErrNotOpen{What: "map user memory"}
	}
	if len(buf) == 0 {
		return nil, errors.New("cannot map an empty buffer")
	}
	m := &userMemory{fd: d.fd}
	m.pinner.Pin(&buf[0])
	m.handle = umemHandle{
		Vma:  uint64(uintptr(unsafe.Pointer(&buf[0]))),
		Size: uint64(len(buf)),
		Dir:  dmaBidirectional,
	}
	if err := ioctlPtr(d.fd, iocUmemSgmap, unsafe.Pointer(&m.handle)); err != nil {
		m.pinner.Unpin()
		return nil, fmt.Errorf("map user buffer of %d bytes: %w", len(buf), err)
	}

	// a buffer not starting on a page boundary touches one more page
	nents := (len(buf)+driver.PageSize-1)/driver.PageSize + 1
	sg := make([]umemSGEntry, nents)
	list := umemSGList{
		HandleID: m.handle.HandleID,
		Type:     sgNonMerged,
		Nents:    int32(nents),
		SG:       &sg[0],
	}
	var p runtime.Pinner
	p.Pin(&sg[0])
	err := ioctlPtr(d.fd, iocUmemSgget, unsafe.Pointer(&list))
	p.Unpin()
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("read scatter-gather list: %w", err)
	}
	for _, e := range sg[:list.Nents] {
		m.entries = append(m.entries, driver.SGEntry{Addr: e.Addr, Size: uint32(e.Size)})
	}
	return m, nil
}

// waiter returns the channel of the WAITI ioctl in flight on line,
// starting one if there is none
func (d *Driver) waiter(line int) chan error {
	d.waitMu.Lock()
	defer d.waitMu.Unlock()
	if done, ok := d.waiters[line]; ok {
		return done
	}
	fd, irqctl := d.fd, d.irqctl
	done := make(chan error, 1)
	d.waiters[line] = done
	go func() {
		done <- irqctl(fd, iocWaitIrq, uintptr(line))
	}()
	return done
}

func (d *Driver) waited(line int, done chan error) {
	d.waitMu.Lock()
	defer d.waitMu.Unlock()
	if d.waiters[line] == done {
		delete(d.waiters, line)
	}
}

// WaitForInterrupt blocks in the driver until line fires. The ioctl itself
// cannot be interrupted: on ctx expiry it stays in flight and the next wait
// on the same line picks up its result instead of starting another one.
func (d *Driver) WaitForInterrupt(ctx context.Context, line int) error {
	done := d.waiter(line)
	select {
	case err := <-done:
		d.waited(line, done)
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearInterruptQueue drops interrupts queued in the driver for line and the
// result of an abandoned wait that has already returned. A wait still blocked
// in the kernel is kept and serves the next interrupt.
func (d *Driver) ClearInterruptQueue(line int) error {
	d.waitMu.Lock()
	if done, ok := d.waiters[line]; ok {
		select {
		case <-done:
			delete(d.waiters, line)
		default:
		}
	}
	d.waitMu.Unlock()
	return d.irqctl(d.fd, iocClearIoq, uintptr(line))
}

func syncDir(dir driver.SyncDirection) int32 {
	switch dir {
	case driver.SyncToDevice:
		return dmaToDevice
	case driver.SyncFromDevice:
		return dmaFromDevice
	}
	return dmaBidirectional
}

type kernelMemory struct {
	fd     int
	handle kmemHandle
	buf    []byte
}

func (m *kernelMemory) Buffer() []byte {
	return m.buf
}

func (m *kernelMemory) PhysAddr() uint64 {
	return m.handle.Pa
}

func (m *kernelMemory) Sync(dir driver.SyncDirection) error {
	s := kmemSync{Handle: m.handle, Dir: syncDir(dir)}
	return ioctlPtr(m.fd, iocKmemSync, unsafe.Pointer(&s))
}

func (m *kernelMemory) Close() error {
	err := unix.Munmap(m.buf)
	if ferr := ioctlPtr(m.fd, iocKmemFree, unsafe.Pointer(&m.handle)); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

type userMemory struct {
	fd      int
	handle  umemHandle
	pinner  runtime.Pinner
	entries []driver.SGEntry
}

func (m *userMemory) SGEntries() []driver.SGEntry {
	return m.entries
}

func (m *userMemory) Sync(dir driver.SyncDirection) error {
	h := m.handle
	h.Dir = syncDir(dir)
	return ioctlPtr(m.fd, iocUmemSync, unsafe.Pointer(&h))
}

func (m *userMemory) Close() error {
	err := ioctlPtr(m.fd, iocUmemSgunmap, unsafe.Pointer(&m.handle))
	m.pinner.Unpin()
	return err
}
