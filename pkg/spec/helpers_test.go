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
	"time"

	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spec/pkg/bar"
	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/driver/sim"
)

const testIRQTimeout = 50 * time.Millisecond

func newTestController(t *testing.T, opts ...sim.Option) (*Controller, *sim.Card) {
	card := sim.New(opts...)
	c, err := NewController(card, 0, WithSettleDelay(0), WithIRQTimeout(testIRQTimeout))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, card
}

// accessCounter counts register accesses the transfer path cares about
type accessCounter struct {
	bar0Writes int
	starts     int
	acks       int
}

func (a *accessCounter) attach(c *Controller) {
	c.Bar0().SetTrace(func(_ int, op bar.Op, off uint32, value uint32) {
		if op != bar.OpWrite {
			return
		}
		a.bar0Writes++
		if off == device.DmaCtrl && value&device.DmaCtrlStart != 0 {
			a.starts++
		}
	})
	c.Bar4().SetTrace(func(_ int, op bar.Op, off uint32, _ uint32) {
		if op == bar.OpRead && off == device.RegGpioIntStatus.Word() {
			a.acks++
		}
	})
}

type recorder struct {
	configured [][]RegValue
	transfers  []TransferRecord
}

func (r *recorder) Configured(card uint, regs []RegValue) {
	r.configured = append(r.configured, regs)
}

func (r *recorder) Transferred(rec TransferRecord) {
	r.transfers = append(r.transfers, rec)
}

func pattern(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i*31) ^ seed
	}
	return buf
}
