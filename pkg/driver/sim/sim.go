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

// Package sim is an in-process SPEC card behind the driver interface.
//
// BAR0 and BAR4 are plain memory. The DMA engine runs when the caller waits
// for the DMA interrupt with the start bit set: it follows the installed
// descriptor chain through the simulated physical address space and copies
// between host buffers and the card memory.
package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"jinr.ru/greenlab/go-spec/pkg/bar"
	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/dma"
	"jinr.ru/greenlab/go-spec/pkg/driver"
	"jinr.ru/greenlab/go-spec/pkg/layers"
	"jinr.ru/greenlab/go-spec/pkg/log"
)

const (
	Bar0Size          = 0x10000
	Bar4Size          = 0x1000
	DefaultMemorySize = 2 << 20
	DefaultPageRun    = 4
	DefaultMsiData    = 0x2

	// simulated physical addresses start here
	physBase uint64 = 0x1_0000_0000
	// longest chain the engine follows before giving up
	maxChainLength = 1 << 20
)

type Option func(*Card)

// WithMemorySize sets the size of the card memory reachable by DMA
func WithMemorySize(size int) Option {
	return func(c *Card) {
		c.mem = make([]byte, size)
	}
}

// WithPageRun sets how many physically contiguous pages a pinned user
// buffer is made of before the next gap
func WithPageRun(pages int) Option {
	return func(c *Card) {
		if pages > 0 {
			c.pageRun = pages
		}
	}
}

// WithCards sets how many cards exist; ids from 0 to n-1 can be opened
func WithCards(n uint) Option {
	return func(c *Card) {
		c.cards = n
	}
}

// WithMsiData sets the value the bridge reports in MSI_DATA
func WithMsiData(value uint32) Option {
	return func(c *Card) {
		c.msiData = value
	}
}

type region struct {
	phys uint64
	buf  []byte
}

// Card implements driver.Driver
type Card struct {
	mu sync.Mutex

	cards   uint
	pageRun int
	msiData uint32

	open bool
	id   uint
	bar0 []uint32
	bar4 []uint32
	mem  []byte

	mapped   map[int]bool
	regions  map[uint64]*region
	nextPhys uint64

	pending map[int]int
	wake    chan struct{}

	failOpen    error
	failMapBar   map[int]error
	failUnmapBar map[int]error
	failUserMap  error
	dropIrq      int
	abortNext    bool
	lastChain    []dma.Descriptor
	stats        Stats
}

// New creates a powered up card with zeroed registers
func New(opts ...Option) *Card {
	c := &Card{
		cards:        1,
		pageRun:      DefaultPageRun,
		msiData:      DefaultMsiData,
		bar0:         make([]uint32, Bar0Size/4),
		bar4:         make([]uint32, Bar4Size/4),
		mapped:       map[int]bool{},
		regions:      map[uint64]*region{},
		nextPhys:     physBase,
		pending:      map[int]int{},
		wake:         make(chan struct{}, 1),
		failMapBar:   map[int]error{},
		failUnmapBar: map[int]error{},
		stats:        newStats(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mem == nil {
		c.mem = make([]byte, DefaultMemorySize)
	}
	c.store4(device.RegMsiData, c.msiData)
	return c
}

func (c *Card) Open(id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOpen != nil {
		return c.failOpen
	}
	if id >= c.cards {
		return driver.ErrNoDevice{Card: id}
	}
	c.open = true
	c.id = id
	c.stats.Opened++
	log.Debug("sim: card %d opened", id)
	return nil
}

func (c *Card) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.teardown = append(c.stats.teardown, "close")
	if !c.open {
		return driver.ErrNotOpen{What: "close"}
	}
	c.open = false
	c.stats.Closed++
	return nil
}

func (c *Card) MapBAR(bar int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil, driver.ErrNotOpen{What: fmt.Sprintf("map BAR%d", bar)}
	}
	if err, ok := c.failMapBar[bar]; ok {
		return nil, err
	}
	var words []uint32
	switch bar {
	case device.Bar0:
		words = c.bar0
	case device.Bar4:
		words = c.bar4
	default:
		return nil, driver.ErrBadBar{Bar: bar}
	}
	c.mapped[bar] = true
	c.stats.BarsMapped++
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*4), nil
}

func (c *Card) UnmapBAR(bar int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.teardown = append(c.stats.teardown, fmt.Sprintf("unmap%d", bar))
	if !c.mapped[bar] {
		return driver.ErrBadBar{Bar: bar}
	}
	if err, ok := c.failUnmapBar[bar]; ok {
		return err
	}
	delete(c.mapped, bar)
	c.stats.BarsUnmapped++
	return nil
}

// Access models the read-to-clear GPIO_INT_STATUS of the bridge: a read
// clears the bits it returned. Bits latched after the read stay set.
func (c *Card) Access(index int, op bar.Op, off uint32, value uint32) {
	if index != device.Bar4 || op != bar.OpRead || off != device.RegGpioIntStatus.Word() || value == 0 {
		return
	}
	atomic.AndUint32(&c.bar4[off], ^value)
	c.mu.Lock()
	c.stats.Acks++
	c.mu.Unlock()
}

// MapUserMemory pins buf. The buffer is laid out in runs of pageRun
// contiguous pages, every run is one scatter-gather entry.
func (c *Card) MapUserMemory(buf []byte) (driver.UserMemory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil, driver.ErrNotOpen{What: "map user memory"}
	}
	if c.failUserMap != nil {
		return nil, c.failUserMap
	}
	um := &userMemory{card: c}
	run := c.pageRun * driver.PageSize
	for off := 0; off < len(buf); off += run {
		end := off + run
		if end > len(buf) {
			end = len(buf)
		}
		r := c.place(buf[off:end])
		um.regions = append(um.regions, r)
		um.entries = append(um.entries, driver.SGEntry{Addr: r.phys, Size: uint32(end - off)})
	}
	c.stats.UserMapped++
	return um, nil
}

func (c *Card) AllocKernelMemory(size int) (driver.KernelMemory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil, driver.ErrNotOpen{What: "allocate kernel memory"}
	}
	if size <= 0 {
		return nil, fmt.Errorf("kernel memory size %d", size)
	}
	km := &kernelMemory{card: c}
	km.region = c.place(make([]byte, size))
	c.stats.KernelAllocated++
	return km, nil
}

// place puts buf into the physical address space followed by a one page gap
func (c *Card) place(buf []byte) *region {
	r := &region{phys: c.nextPhys, buf: buf}
	c.regions[r.phys] = r
	pages := (uint64(len(buf)) + driver.PageSize - 1) / driver.PageSize
	c.nextPhys += (pages + 1) * driver.PageSize
	return r
}

func (c *Card) release(r *region) {
	delete(c.regions, r.phys)
}

// resolve returns n bytes of host memory at physical address addr
func (c *Card) resolve(addr uint64, n uint32) ([]byte, bool) {
	for _, r := range c.regions {
		if addr < r.phys || addr >= r.phys+uint64(len(r.buf)) {
			continue
		}
		off := addr - r.phys
		if off+uint64(n) > uint64(len(r.buf)) {
			return nil, false
		}
		return r.buf[off : off+uint64(n)], true
	}
	return nil, false
}

func (c *Card) WaitForInterrupt(ctx context.Context, line int) error {
	for {
		c.mu.Lock()
		if line == device.IrqDma {
			c.runEngine()
		}
		if c.pending[line] > 0 {
			c.pending[line]--
			c.stats.Interrupts++
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}
	}
}

func (c *Card) ClearInterruptQueue(line int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[line] = 0
	c.stats.QueueClears[line]++
	return nil
}

// Raise queues an interrupt on line as if the FPGA had fired it
func (c *Card) Raise(line int) {
	c.mu.Lock()
	c.pending[line]++
	c.mu.Unlock()
	c.notify()
}

func (c *Card) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// runEngine executes the installed chain if the start bit is set
func (c *Card) runEngine() {
	if atomic.LoadUint32(&c.bar0[device.DmaCtrl])&device.DmaCtrlStart == 0 {
		return
	}
	atomic.StoreUint32(&c.bar0[device.DmaCtrl], 0)
	atomic.StoreUint32(&c.bar0[device.DmaStat], device.DmaStatBusy)
	c.stats.Transfers++

	window := make([]byte, dma.DescriptorSize)
	copy(window, unsafe.Slice((*byte)(unsafe.Pointer(&c.bar0[device.DmaCStart])), dma.DescriptorSize))

	status := device.DmaStatDone
	chain, err := c.execute(window)
	if err != nil {
		log.Debug("sim: DMA aborted: %s", err)
		status = device.DmaStatAborted
	}
	if c.abortNext {
		c.abortNext = false
		status = device.DmaStatAborted
	}
	c.lastChain = chain
	atomic.StoreUint32(&c.bar0[device.DmaStat], status)
	w := device.RegGpioIntStatus.Word()
	atomic.StoreUint32(&c.bar4[w], atomic.LoadUint32(&c.bar4[w])|device.GpioIntDma)

	if c.dropIrq > 0 {
		c.dropIrq--
		return
	}
	c.pending[device.IrqDma]++
}

func (c *Card) execute(head []byte) ([]dma.Descriptor, error) {
	var chain []dma.Descriptor
	data := head
	for {
		d, err := layers.DecodeDescriptor(data)
		if err != nil {
			return chain, err
		}
		chain = append(chain, d)
		if err := c.copyChunk(d); err != nil {
			return chain, err
		}
		if d.Last() {
			return chain, nil
		}
		if len(chain) >= maxChainLength {
			return chain, fmt.Errorf("chain longer than %d descriptors", maxChainLength)
		}
		next, ok := c.resolve(d.HostNext(), dma.DescriptorSize)
		if !ok {
			return chain, fmt.Errorf("next descriptor at 0x%x is not mapped", d.HostNext())
		}
		data = next
	}
}

func (c *Card) copyChunk(d dma.Descriptor) error {
	host, ok := c.resolve(d.HostStart(), d.Length)
	if !ok {
		return fmt.Errorf("host range 0x%x+%d is not mapped", d.HostStart(), d.Length)
	}
	start := uint64(d.CarrierStart)
	if start+uint64(d.Length) > uint64(len(c.mem)) {
		return fmt.Errorf("card range 0x%x+%d outside of %d bytes", start, d.Length, len(c.mem))
	}
	card := c.mem[start : start+uint64(d.Length)]
	if d.Direction() == dma.HostToDevice {
		copy(card, host)
	} else {
		copy(host, card)
	}
	return nil
}

func (c *Card) store4(r device.RegAlias, value uint32) {
	atomic.StoreUint32(&c.bar4[r.Word()], value)
}

func (c *Card) load4(r device.RegAlias) uint32 {
	return atomic.LoadUint32(&c.bar4[r.Word()])
}
