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

// Package spec controls the SPEC carrier card: bridge bring-up, register
// access and scatter-gather DMA between host memory and the FPGA.
package spec

import (
	"time"

	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/driver"
	"jinr.ru/greenlab/go-spec/pkg/log"
)

const (
	DefaultIRQTimeout  = 2 * time.Second
	DefaultSettleDelay = 200 * time.Microsecond
)

// RegValue is a named register value
type RegValue struct {
	Name  string `json:"name"`
	Addr  uint32 `json:"addr"`
	Value uint32 `json:"value"`
}

// TransferRecord describes a finished DMA transfer
type TransferRecord struct {
	Time        time.Time     `json:"time"`
	Card        uint          `json:"card"`
	Direction   string        `json:"direction"`
	Offset      uint32        `json:"offset"`
	Bytes       int           `json:"bytes"`
	Descriptors int           `json:"descriptors"`
	Result      string        `json:"result"`
	Status      string        `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Observer is told about bring-up and every transfer
type Observer interface {
	Configured(card uint, regs []RegValue)
	Transferred(rec TransferRecord)
}

type Option func(*Controller)

// WithIRQTimeout bounds the wait for the DMA completion interrupt when
// the caller context has no deadline
func WithIRQTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.irqTimeout = timeout
		}
	}
}

// WithSettleDelay sets the pause between interrupt setup and clearing the driver queues
func WithSettleDelay(delay time.Duration) Option {
	return func(c *Controller) {
		c.settleDelay = delay
	}
}

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// Controller drives one card. It has no internal lock and expects a single
// owner: concurrent transfers race between the status check and the start.
type Controller struct {
	*Handle
	irqTimeout  time.Duration
	settleDelay time.Duration
	observers   []Observer
}

// NewController opens card id, maps its BARs and runs the bring-up sequence
func NewController(drv driver.Driver, id uint, opts ...Option) (*Controller, error) {
	h, err := Open(drv, id)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		Handle:      h,
		irqTimeout:  DefaultIRQTimeout,
		settleDelay: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Configure(); err != nil {
		h.Close()
		return nil, err
	}
	return c, nil
}

func (c *Controller) IRQTimeout() time.Duration {
	return c.irqTimeout
}

// Status reads the DMA status register
func (c *Controller) Status() Status {
	return Status(c.bar0.ReadWord(device.DmaStat))
}

// WriteSingle writes one word of BAR0
func (c *Controller) WriteSingle(off uint32, value uint32) {
	c.bar0.WriteWord(off, value)
}

// ReadSingle reads one word of BAR0
func (c *Controller) ReadSingle(off uint32) uint32 {
	return c.bar0.ReadWord(off)
}

// WriteBlock writes words to consecutive BAR0 addresses starting at off
func (c *Controller) WriteBlock(off uint32, words []uint32) {
	c.bar0.WriteBlock(off, words)
}

// ReadBlock fills words from consecutive BAR0 addresses starting at off
func (c *Controller) ReadBlock(off uint32, words []uint32) {
	c.bar0.ReadBlock(off, words)
}

// Snapshot reads the bridge registers of BAR4. GPIO_INT_STATUS is left out
// since reading it acknowledges a pending interrupt.
func (c *Controller) Snapshot() []RegValue {
	regs := make([]RegValue, 0, device.RegAliasLimit)
	for r := device.RegAlias(0); r < device.RegAliasLimit; r++ {
		if r == device.RegGpioIntStatus {
			continue
		}
		regs = append(regs, RegValue{
			Name:  r.String(),
			Addr:  r.Addr(),
			Value: c.bar4.ReadWord(r.Word()),
		})
	}
	return regs
}

func (c *Controller) notifyConfigured(regs []RegValue) {
	for _, o := range c.observers {
		o.Configured(c.id, regs)
	}
}

func (c *Controller) notifyTransferred(rec TransferRecord) {
	for _, o := range c.observers {
		o.Transferred(rec)
	}
	log.Debug("DMA %s offset 0x%x %d bytes: %s", rec.Direction, rec.Offset, rec.Bytes, rec.Result)
}
