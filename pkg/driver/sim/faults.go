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
)

// FailOpen makes subsequent Open calls return err
func (c *Card) FailOpen(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failOpen = err
}

// FailMapBAR makes mapping BAR bar return err
func (c *Card) FailMapBAR(bar int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failMapBar[bar] = err
}

// FailUnmapBAR makes unmapping BAR bar return err and leaves it mapped
func (c *Card) FailUnmapBAR(bar int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failUnmapBar[bar] = err
}

// FailUserMap makes pinning user memory return err
func (c *Card) FailUserMap(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failUserMap = err
}

// DropInterrupts swallows the completion interrupt of the next n transfers
func (c *Card) DropInterrupts(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropIrq = n
}

// AbortNext makes the next transfer end with the aborted status
func (c *Card) AbortNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortNext = true
}

// SetDmaStatus forces the DMA status register, e.g. to hold the engine busy
func (c *Card) SetDmaStatus(status uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	atomic.StoreUint32(&c.bar0[device.DmaStat], status)
}
