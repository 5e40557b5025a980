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

package sim

import (
	"sync/atomic"

	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/dma"
	"jinr.ru/greenlab/go-spec/pkg/driver"
)

// Stats counts what the card was asked to do
type Stats struct {
	Opened       int
	Closed       int
	BarsMapped   int
	BarsUnmapped int

	UserMapped      int
	UserReleased    int
	KernelAllocated int
	KernelReleased  int
	UserSyncs       map[driver.SyncDirection]int
	KernelSyncs     map[driver.SyncDirection]int

	Transfers   int
	Interrupts  int
	// GPIO_INT_STATUS reads that cleared at least one bit
	Acks        int
	QueueClears map[int]int

	// kinds of buffers in release order
	releases []string
	// BAR unmaps and closes in call order
	teardown []string
}

func newStats() Stats {
	return Stats{
		UserSyncs:   map[driver.SyncDirection]int{},
		KernelSyncs: map[driver.SyncDirection]int{},
		QueueClears: map[int]int{},
	}
}

// Leaks is the number of pinned buffers not released yet
func (s Stats) Leaks() int {
	return s.UserMapped - s.UserReleased + s.KernelAllocated - s.KernelReleased
}

// Releases lists the kinds of buffers ("user", "kernel") in the order they were released
func (s Stats) Releases() []string {
	return append([]string(nil), s.releases...)
}

// Teardown lists the UnmapBAR ("unmap0", "unmap4") and Close ("close")
// calls in the order they were made, failed ones included
func (s Stats) Teardown() []string {
	return append([]string(nil), s.teardown...)
}

// Stats returns a copy of the counters
func (c *Card) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.UserSyncs = copyCounts(c.stats.UserSyncs)
	s.KernelSyncs = copyCounts(c.stats.KernelSyncs)
	s.QueueClears = copyCounts(c.stats.QueueClears)
	s.releases = append([]string(nil), c.stats.releases...)
	s.teardown = append([]string(nil), c.stats.teardown...)
	return s
}

func copyCounts[K comparable](m map[K]int) map[K]int {
	out := make(map[K]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// LastChain returns the descriptors the engine walked during the last transfer
func (c *Card) LastChain() []dma.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dma.Descriptor(nil), c.lastChain...)
}

// Memory returns the card memory reachable by DMA
func (c *Card) Memory() []byte {
	return c.mem
}

// Mapped reports whether BAR bar is currently mapped
func (c *Card) Mapped(bar int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mapped[bar]
}

// IsOpen reports whether the card is open
func (c *Card) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reg4 reads a BAR4 register the way the bridge holds it
func (c *Card) Reg4(r device.RegAlias) uint32 {
	return c.load4(r)
}

// DmaStatus reads the DMA status register
func (c *Card) DmaStatus() uint32 {
	return c.load0(device.DmaStat)
}

func (c *Card) load0(word uint32) uint32 {
	return atomic.LoadUint32(&c.bar0[word])
}
