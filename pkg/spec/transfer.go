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
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unsafe"

	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/dma"
	"jinr.ru/greenlab/go-spec/pkg/driver"
	"jinr.ru/greenlab/go-spec/pkg/log"
)

// WriteDma copies data to card memory at word offset off
func (c *Controller) WriteDma(ctx context.Context, off uint32, data []uint32) (Result, error) {
	return c.Transfer(ctx, dma.HostToDevice, off, data)
}

// ReadDma fills data from card memory at word offset off
func (c *Controller) ReadDma(ctx context.Context, off uint32, data []uint32) (Result, error) {
	return c.Transfer(ctx, dma.DeviceToHost, off, data)
}

// Transfer moves data between host memory and card memory at word offset off
func (c *Controller) Transfer(ctx context.Context, dir dma.Direction, off uint32, data []uint32) (Result, error) {
	var buf []byte
	if len(data) > 0 {
		buf = unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
	}
	return c.TransferBytes(ctx, dir, off, buf)
}

// TransferBytes moves buf between host memory and card memory at word offset off.
//
// The transfer is refused without touching the card unless the engine is idle,
// done or aborted. The status check and the start bit are not atomic: callers
// sharing a controller must serialize transfers themselves.
//
// The wait for the completion interrupt is bounded by the ctx deadline or,
// if ctx has none, by the configured IRQ timeout.
func (c *Controller) TransferBytes(ctx context.Context, dir dma.Direction, off uint32, buf []byte) (Result, error) {
	rec := TransferRecord{
		Time:      time.Now(),
		Card:      c.id,
		Direction: dir.String(),
		Offset:    off,
		Bytes:     len(buf),
	}
	result, err := c.transfer(ctx, dir, off, buf, &rec)
	rec.Duration = time.Since(rec.Time)
	rec.Result = result.String()
	if err != nil {
		rec.Error = err.Error()
	}
	c.notifyTransferred(rec)
	return result, err
}

func (c *Controller) transfer(ctx context.Context, dir dma.Direction, off uint32, buf []byte, rec *TransferRecord) (Result, error) {
	if c.closed {
		return ResultFailed, ErrClosed{}
	}
	status := c.Status()
	rec.Status = status.String()
	if !status.Startable() {
		return ResultRefused, ErrTransferRefused{Status: status}
	}
	if len(buf) == 0 {
		return ResultFailed, dma.ErrEmptyChain
	}

	um, err := c.drv.MapUserMemory(buf)
	if err != nil {
		return ResultFailed, fmt.Errorf("pin user buffer: %w", err)
	}
	defer release(um, "user buffer")
	if dir == dma.HostToDevice {
		if err := um.Sync(driver.SyncToDevice); err != nil {
			return ResultFailed, fmt.Errorf("sync user buffer: %w", err)
		}
	}

	entries := um.SGEntries()
	km, err := c.drv.AllocKernelMemory(dma.BufferSize(entries))
	if err != nil {
		return ResultFailed, fmt.Errorf("allocate descriptor buffer: %w", err)
	}
	defer release(km, "descriptor buffer")

	chain := dma.NewChain(km)
	n, err := dma.Build(chain, entries, off, dir)
	if err != nil {
		return ResultFailed, err
	}
	rec.Descriptors = n

	// drop interrupts left over from a timed out transfer. One arriving
	// between this and the start bit is still taken as this completion.
	if err := c.drv.ClearInterruptQueue(device.IrqDma); err != nil {
		return ResultFailed, fmt.Errorf("clear interrupt queue %d: %w", device.IrqDma, err)
	}
	c.install(chain.Head())
	c.bar0.WriteWord(device.DmaCtrl, device.DmaCtrlStart)

	timeout := c.irqTimeout
	wctx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	} else {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.drv.WaitForInterrupt(wctx, device.IrqDma); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ResultTimedOut, ErrTransferTimeout{Timeout: timeout, Err: err}
		}
		return ResultFailed, fmt.Errorf("wait for DMA interrupt: %w", err)
	}
	// reading the GPIO interrupt status acknowledges the interrupt
	c.bar4.ReadWord(device.RegGpioIntStatus.Word())

	if dir == dma.DeviceToHost {
		if err := um.Sync(driver.SyncFromDevice); err != nil {
			return ResultFailed, fmt.Errorf("sync user buffer: %w", err)
		}
	}

	status = c.Status()
	rec.Status = status.String()
	if status == StatusAborted {
		return ResultAborted, ErrTransferAborted{Status: status}
	}
	return ResultCompleted, nil
}

// install writes the head descriptor into the DMA register window
func (c *Controller) install(head dma.Descriptor) {
	words := head.Words()
	c.bar0.WriteBlock(device.DmaCStart, words[:])
}

func release(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		log.Warning("Failed to release %s: %s", what, err)
	}
}
