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

package spec

import (
	"errors"

	"jinr.ru/greenlab/go-spec/pkg/bar"
	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/driver"
	"jinr.ru/greenlab/go-spec/pkg/log"
)

// Handle owns an opened card and its two mapped BARs
type Handle struct {
	drv    driver.Driver
	id     uint
	bar0   *bar.Region
	bar4   *bar.Region
	closed bool
}

// Open opens card id and maps BAR0 and BAR4.
// On failure everything acquired so far is released.
func Open(drv driver.Driver, id uint) (*Handle, error) {
	if err := drv.Open(id); err != nil {
		return nil, ErrCardOpen{Card: id, Err: err}
	}

	mem0, err := drv.MapBAR(device.Bar0)
	if err != nil {
		drv.Close()
		return nil, ErrBarMap{Bar: device.Bar0, Err: err}
	}
	log.Info("Mapped BAR0 of card %d with size 0x%x", id, len(mem0))

	mem4, err := drv.MapBAR(device.Bar4)
	if err != nil {
		drv.UnmapBAR(device.Bar0)
		drv.Close()
		return nil, ErrBarMap{Bar: device.Bar4, Err: err}
	}
	log.Info("Mapped BAR4 of card %d with size 0x%x", id, len(mem4))

	h := &Handle{
		drv:  drv,
		id:   id,
		bar0: bar.New(device.Bar0, mem0),
		bar4: bar.New(device.Bar4, mem4),
	}
	if m, ok := drv.(driver.BusModel); ok {
		h.bar0.SetBus(m.Access)
		h.bar4.SetBus(m.Access)
	}
	return h, nil
}

// Close unmaps BAR0, unmaps BAR4 and closes the card. Every step runs even
// if an earlier one fails. Closing twice is a no-op.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	log.Debug("Closing card %d", h.id)
	return errors.Join(
		h.drv.UnmapBAR(device.Bar0),
		h.drv.UnmapBAR(device.Bar4),
		h.drv.Close(),
	)
}

func (h *Handle) ID() uint {
	return h.id
}

func (h *Handle) Closed() bool {
	return h.closed
}

// Bar0 is the data plane and DMA register region
func (h *Handle) Bar0() *bar.Region {
	return h.bar0
}

// Bar4 is the bridge configuration region
func (h *Handle) Bar4() *bar.Region {
	return h.bar4
}

// Bar returns the region with the given BAR number
func (h *Handle) Bar(n int) (*bar.Region, error) {
	switch n {
	case device.Bar0:
		return h.bar0, nil
	case device.Bar4:
		return h.bar4, nil
	}
	return nil, driver.ErrBadBar{Bar: n}
}
