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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spec/pkg/bar"
	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/driver/sim"
)

func TestConfigure_RegisterState(t *testing.T) {
	_, card := newTestController(t)

	assert.Equal(t, device.MsiControlMagic, card.Reg4(device.RegMsiControl))
	for i := 0; i < device.IntCfgCount; i++ {
		want := uint32(0)
		if i == sim.DefaultMsiData&0x3 {
			want = device.IntCfgGpio
		}
		assert.Equal(t, want, card.Reg4(device.IntCfg(i)), "INT_CFG%d", i)
	}
	assert.Equal(t, uint32(0), card.Reg4(device.RegGpioBypassMode))
	assert.Equal(t, uint32(0xFFFF), card.Reg4(device.RegGpioDirectionMode))
	assert.Equal(t, uint32(0), card.Reg4(device.RegGpioOutputEnable))
	assert.Equal(t, uint32(0), card.Reg4(device.RegGpioIntType))
	assert.Equal(t, uint32(0x0300), card.Reg4(device.RegGpioIntValue))
	assert.Equal(t, uint32(0), card.Reg4(device.RegGpioIntOnAny))
	assert.Equal(t, uint32(0xFFFF), card.Reg4(device.RegGpioIntMaskSet))
	assert.Equal(t, uint32(0x0300), card.Reg4(device.RegGpioIntMaskClr))
	assert.Equal(t, uint32(0), card.Reg4(device.RegIntStat))

	s := card.Stats()
	assert.Equal(t, 1, s.QueueClears[device.IrqDma])
	assert.Equal(t, 1, s.QueueClears[device.IrqAux])
}

func TestConfigure_MsiVector(t *testing.T) {
	_, card := newTestController(t, sim.WithMsiData(0x4d))
	assert.Equal(t, device.IntCfgGpio, card.Reg4(device.IntCfg(1)))
	assert.Equal(t, uint32(0), card.Reg4(device.IntCfg(2)))
}

func TestConfigure_Idempotent(t *testing.T) {
	c, card := newTestController(t)
	first := c.Snapshot()

	msiWrites := 0
	c.Bar4().SetTrace(func(_ int, op bar.Op, off uint32, _ uint32) {
		if op == bar.OpWrite && off == device.RegMsiControl.Word() {
			msiWrites++
		}
	})
	require.NoError(t, c.Configure())
	assert.Equal(t, first, c.Snapshot())
	assert.Zero(t, msiWrites)
	assert.Equal(t, 2, card.Stats().QueueClears[device.IrqDma])
}

func TestConfigure_NotifiesObserver(t *testing.T) {
	rec := &recorder{}
	card := sim.New()
	c, err := NewController(card, 0, WithSettleDelay(0), WithObserver(rec))
	require.NoError(t, err)
	defer c.Close()

	require.Len(t, rec.configured, 1)
	regs := rec.configured[0]
	assert.Len(t, regs, int(device.RegAliasLimit)-1)
	for _, r := range regs {
		assert.NotEqual(t, device.RegGpioIntStatus.String(), r.Name)
		if r.Name == device.RegMsiControl.String() {
			assert.Equal(t, device.MsiControlMagic, r.Value)
		}
	}
}
