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

package command

import (
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/driver/sim"
	"jinr.ru/greenlab/go-spec/pkg/metrics"
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/srv/control"
	"jinr.ru/greenlab/go-spec/pkg/state"
)

func newTestClient(t *testing.T) (*ApiClient, *sim.Card) {
	cfg := config.NewDefaultConfig()
	st, err := state.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	m := metrics.New()

	card := sim.New()
	ctrl, err := spec.NewController(card, 0, spec.WithSettleDelay(0), spec.WithIRQTimeout(50*time.Millisecond), spec.WithObserver(st))
	require.NoError(t, err)
	t.Cleanup(func() { ctrl.Close() })

	s, err := control.NewControlServer(cfg, ctrl, st, m)
	require.NoError(t, err)
	api, err := control.NewApiServer(cfg, s, m)
	require.NoError(t, err)
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	client := NewApiClient(cfg)
	client.ApiPrefix = ts.URL + "/api"
	return client, card
}

func TestNewApiClient(t *testing.T) {
	cfg := config.NewDefaultConfig()
	assert.Equal(t, "http://127.0.0.1:8010/api", NewApiClient(cfg).ApiPrefix)
}

func TestClient_Registers(t *testing.T) {
	c, _ := newTestClient(t)

	value, err := c.RegRead(4, "0x48")
	require.NoError(t, err)
	assert.Equal(t, control.Hex(device.MsiControlMagic), value)

	require.NoError(t, c.RegWrite(0, "0x20", "0x55"))
	require.NoError(t, c.RegMaskWrite(0, "0x20", "0x0f", "0x0a"))
	value, err = c.RegRead(0, "0x20")
	require.NoError(t, err)
	assert.Equal(t, "0x0000005a", value)

	err = c.RegWrite(0, "0x22", "0x1")
	var apiErr ErrApi
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Error(), "not word aligned")

	regs, err := c.RegReadAll()
	require.NoError(t, err)
	assert.Len(t, regs, int(device.RegAliasLimit)-1)

	stored, err := c.RegSnapshot()
	require.NoError(t, err)
	assert.Equal(t, regs, stored)

	regs, err = c.Bringup()
	require.NoError(t, err)
	assert.Equal(t, stored, regs)
}

func TestClient_Dma(t *testing.T) {
	c, card := newTestClient(t)

	status, err := c.DmaStatus()
	require.NoError(t, err)
	assert.Equal(t, "idle", status.Status)

	res, err := c.DmaWrite("0x0", []uint32{7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Result)

	res, err = c.DmaRead("0x0", 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 8, 9}, res.Data)

	card.DropInterrupts(1)
	res, err = c.DmaWrite("0x0", []uint32{1})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "timed_out", res.Result)

	recs, err := c.DmaHistory(0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "timed_out", recs[2].Result)

	recs, err = c.DmaHistory(1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
