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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spec/pkg/bar"
	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/dma"
	"jinr.ru/greenlab/go-spec/pkg/driver"
)

func openCard(t *testing.T, opts ...Option) (*Card, *bar.Region, *bar.Region) {
	card := New(opts...)
	require.NoError(t, card.Open(0))
	b0, err := card.MapBAR(device.Bar0)
	require.NoError(t, err)
	b4, err := card.MapBAR(device.Bar4)
	require.NoError(t, err)
	return card, bar.New(device.Bar0, b0), bar.New(device.Bar4, b4)
}

// start installs a chain for buf and sets the start bit
func start(t *testing.T, card *Card, bar0 *bar.Region, buf []byte, off uint32, dir dma.Direction) (driver.UserMemory, driver.KernelMemory) {
	um, err := card.MapUserMemory(buf)
	require.NoError(t, err)
	km, err := card.AllocKernelMemory(dma.BufferSize(um.SGEntries()))
	require.NoError(t, err)
	chain := dma.NewChain(km)
	_, err = dma.Build(chain, um.SGEntries(), off, dir)
	require.NoError(t, err)
	head := chain.Head()
	words := head.Words()
	bar0.WriteBlock(device.DmaCStart, words[:])
	bar0.WriteWord(device.DmaCtrl, device.DmaCtrlStart)
	return um, km
}

func TestCard_OpenAndMap(t *testing.T) {
	card := New(WithCards(2))
	_, err := card.MapBAR(0)
	assert.Error(t, err)

	err = card.Open(5)
	var noDev driver.ErrNoDevice
	assert.True(t, errors.As(err, &noDev))

	require.NoError(t, card.Open(1))
	b0, err := card.MapBAR(device.Bar0)
	require.NoError(t, err)
	assert.Len(t, b0, Bar0Size)
	_, err = card.MapBAR(2)
	var badBar driver.ErrBadBar
	assert.True(t, errors.As(err, &badBar))

	assert.True(t, card.Mapped(device.Bar0))
	require.NoError(t, card.UnmapBAR(device.Bar0))
	assert.False(t, card.Mapped(device.Bar0))
	assert.Error(t, card.UnmapBAR(device.Bar0))
	require.NoError(t, card.Close())
	assert.Error(t, card.Close())
}

func TestCard_Faults(t *testing.T) {
	card := New()
	boom := errors.New("boom")
	card.FailMapBAR(device.Bar4, boom)
	require.NoError(t, card.Open(0))
	_, err := card.MapBAR(device.Bar4)
	assert.Equal(t, boom, err)

	card.FailOpen(boom)
	assert.Equal(t, boom, card.Open(0))
}

func TestCard_UserMemoryLayout(t *testing.T) {
	card := New(WithPageRun(2))
	require.NoError(t, card.Open(0))
	um, err := card.MapUserMemory(make([]byte, 5*driver.PageSize+3))
	require.NoError(t, err)

	entries := um.SGEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, uint32(2*driver.PageSize), entries[0].Size)
	assert.Equal(t, uint32(2*driver.PageSize), entries[1].Size)
	assert.Equal(t, uint32(driver.PageSize+3), entries[2].Size)
	// runs are not physically adjacent
	assert.NotEqual(t, entries[0].Addr+uint64(entries[0].Size), entries[1].Addr)
	for _, e := range entries {
		assert.Zero(t, e.Addr%driver.PageSize)
	}

	require.NoError(t, um.Sync(driver.SyncFromDevice))
	require.NoError(t, um.Close())
	assert.Error(t, um.Close())
	assert.Error(t, um.Sync(driver.SyncFromDevice))
	assert.Zero(t, card.Stats().Leaks())
}

func TestCard_DmaRoundTrip(t *testing.T) {
	card, bar0, bar4 := openCard(t)
	ctx := context.Background()

	out := make([]byte, 3*driver.PageSize+100)
	for i := range out {
		out[i] = byte(i * 7)
	}
	um, km := start(t, card, bar0, out, 0x10, dma.HostToDevice)
	require.NoError(t, card.WaitForInterrupt(ctx, device.IrqDma))
	assert.Equal(t, device.DmaStatDone, card.DmaStatus())
	assert.Equal(t, out, card.Memory()[0x40:0x40+len(out)])
	assert.Equal(t, uint32(0), bar0.ReadWord(device.DmaCtrl))
	assert.NotZero(t, bar4.ReadWord(device.RegGpioIntStatus.Word())&device.GpioIntDma)
	assert.Len(t, card.LastChain(), 4)
	require.NoError(t, km.Close())
	require.NoError(t, um.Close())

	in := make([]byte, len(out))
	um, km = start(t, card, bar0, in, 0x10, dma.DeviceToHost)
	require.NoError(t, card.WaitForInterrupt(ctx, device.IrqDma))
	assert.Equal(t, out, in)
	require.NoError(t, km.Close())
	require.NoError(t, um.Close())

	s := card.Stats()
	assert.Equal(t, 2, s.Transfers)
	assert.Equal(t, 2, s.Interrupts)
	assert.Zero(t, s.Leaks())
	assert.Equal(t, []string{"kernel", "user", "kernel", "user"}, s.Releases())
}

func TestCard_AbortOnUnmappedHost(t *testing.T) {
	card, bar0, _ := openCard(t)
	d := dma.Descriptor{Length: 16, Attr: dma.AttrHostToDevice}
	d.SetHostStart(0xdead_0000)
	words := d.Words()
	bar0.WriteBlock(device.DmaCStart, words[:])
	bar0.WriteWord(device.DmaCtrl, device.DmaCtrlStart)

	require.NoError(t, card.WaitForInterrupt(context.Background(), device.IrqDma))
	assert.Equal(t, device.DmaStatAborted, card.DmaStatus())
}

func TestCard_AbortOutsideCardMemory(t *testing.T) {
	card, bar0, _ := openCard(t, WithMemorySize(4096))
	um, km := start(t, card, bar0, make([]byte, 64), 1020, dma.HostToDevice)
	defer um.Close()
	defer km.Close()
	require.NoError(t, card.WaitForInterrupt(context.Background(), device.IrqDma))
	assert.Equal(t, device.DmaStatAborted, card.DmaStatus())
}

func TestCard_AbortNext(t *testing.T) {
	card, bar0, _ := openCard(t)
	card.AbortNext()
	um, km := start(t, card, bar0, make([]byte, 64), 0, dma.HostToDevice)
	defer um.Close()
	defer km.Close()
	require.NoError(t, card.WaitForInterrupt(context.Background(), device.IrqDma))
	assert.Equal(t, device.DmaStatAborted, card.DmaStatus())
}

func TestCard_DroppedInterrupt(t *testing.T) {
	card, bar0, _ := openCard(t)
	card.DropInterrupts(1)
	um, km := start(t, card, bar0, make([]byte, 64), 0, dma.HostToDevice)
	defer um.Close()
	defer km.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := card.WaitForInterrupt(ctx, device.IrqDma)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, device.DmaStatDone, card.DmaStatus())
}

func TestCard_RaiseAndClear(t *testing.T) {
	card, _, _ := openCard(t)
	card.Raise(device.IrqAux)
	card.Raise(device.IrqAux)
	require.NoError(t, card.ClearInterruptQueue(device.IrqAux))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, card.WaitForInterrupt(ctx, device.IrqAux))

	go func() {
		time.Sleep(5 * time.Millisecond)
		card.Raise(device.IrqAux)
	}()
	assert.NoError(t, card.WaitForInterrupt(context.Background(), device.IrqAux))
	assert.Equal(t, 1, card.Stats().QueueClears[device.IrqAux])
}

func TestCard_MsiData(t *testing.T) {
	card := New(WithMsiData(0x7))
	assert.Equal(t, uint32(0x7), card.Reg4(device.RegMsiData))
}

func TestCard_InterruptStatusClearedOnRead(t *testing.T) {
	card, bar0, bar4 := openCard(t)
	bar4.SetBus(card.Access)
	w := device.RegGpioIntStatus.Word()

	um, km := start(t, card, bar0, make([]byte, 8), 0, dma.HostToDevice)
	require.NoError(t, card.WaitForInterrupt(context.Background(), device.IrqDma))
	require.NoError(t, km.Close())
	require.NoError(t, um.Close())

	// writes and other BARs leave the latch alone
	card.Access(device.Bar4, bar.OpWrite, w, device.GpioIntDma)
	card.Access(device.Bar0, bar.OpRead, w, device.GpioIntDma)
	assert.NotZero(t, card.Reg4(device.RegGpioIntStatus)&device.GpioIntDma)

	assert.NotZero(t, bar4.ReadWord(w)&device.GpioIntDma)
	assert.Zero(t, bar4.ReadWord(w))
	assert.Zero(t, card.Reg4(device.RegGpioIntStatus))
	assert.Equal(t, 1, card.Stats().Acks)
}
