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

package control

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/driver/sim"
	"jinr.ru/greenlab/go-spec/pkg/metrics"
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/state"
)

type testServer struct {
	card   *sim.Card
	server *ControlServer
	http   *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	cfg := config.NewDefaultConfig()
	st, err := state.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	m := metrics.New()

	card := sim.New()
	ctrl, err := spec.NewController(card, 0, spec.WithSettleDelay(0), spec.WithObserver(st), spec.WithObserver(m))
	require.NoError(t, err)
	t.Cleanup(func() { ctrl.Close() })

	s, err := NewControlServer(cfg, ctrl, st, m)
	require.NoError(t, err)
	ts := httptest.NewServer(s.api.(*ApiServer).Handler())
	t.Cleanup(ts.Close)
	return &testServer{card: card, server: s, http: ts}
}

func (ts *testServer) get(t *testing.T, path string, out interface{}) int {
	resp, err := http.Get(ts.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) post(t *testing.T, path string, in interface{}, out interface{}) int {
	body, err := json.Marshal(in)
	require.NoError(t, err)
	resp, err := http.Post(ts.http.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestApi_Registers(t *testing.T) {
	ts := newTestServer(t)

	reg := &RegHex{}
	require.Equal(t, http.StatusOK, ts.get(t, "/api/reg/r/4/0x48", reg))
	assert.Equal(t, Hex(device.MsiControlMagic), reg.Value)
	assert.Equal(t, 4, reg.Bar)

	code := ts.post(t, "/api/reg/w/0", &RegHex{Addr: "0x100", Value: "0xdeadbeef"}, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, http.StatusOK, ts.get(t, "/api/reg/r/0/0x100", reg))
	assert.Equal(t, "0xdeadbeef", reg.Value)

	code = ts.post(t, "/api/reg/m/0", &RegMaskHex{Addr: "0x100", Mask: "0xffff", Value: "0x1234"}, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, http.StatusOK, ts.get(t, "/api/reg/r/0/0x100", reg))
	assert.Equal(t, "0xdead1234", reg.Value)

	assert.Equal(t, http.StatusBadRequest, ts.get(t, "/api/reg/r/0/0x101", nil))
	assert.Equal(t, http.StatusBadRequest, ts.get(t, "/api/reg/r/4/0x10000", nil))
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/api/reg/r/2/0x0", nil))
	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/api/reg/w/4", &RegHex{Addr: "zz", Value: "0x1"}, nil))
}

func TestApi_Snapshot(t *testing.T) {
	ts := newTestServer(t)

	var live, stored []*RegHex
	require.Equal(t, http.StatusOK, ts.get(t, "/api/reg/all", &live))
	require.Equal(t, http.StatusOK, ts.get(t, "/api/reg/snapshot", &stored))
	assert.Len(t, live, int(device.RegAliasLimit)-1)
	assert.Len(t, stored, len(live))

	var regs []*RegHex
	require.Equal(t, http.StatusOK, ts.post(t, "/api/bringup", nil, &regs))
	assert.Equal(t, live, regs)
	assert.Equal(t, 2, ts.card.Stats().QueueClears[device.IrqDma])
}

func TestApi_Dma(t *testing.T) {
	ts := newTestServer(t)

	status := &DmaStatus{}
	require.Equal(t, http.StatusOK, ts.get(t, "/api/dma/status", status))
	assert.Equal(t, "idle", status.Status)

	res := &DmaResult{}
	code := ts.post(t, "/api/dma/w", &DmaWrite{Offset: "0x10", Data: []uint32{1, 2, 3}}, res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", res.Result)

	res = &DmaResult{}
	code = ts.post(t, "/api/dma/r", &DmaRead{Offset: "0x11", Words: 2}, res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []uint32{2, 3}, res.Data)

	ts.card.SetDmaStatus(device.DmaStatBusy)
	res = &DmaResult{}
	code = ts.post(t, "/api/dma/w", &DmaWrite{Offset: "0x0", Data: []uint32{1}}, res)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "refused", res.Result)
	assert.NotEmpty(t, res.Error)

	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/api/dma/r", &DmaRead{Offset: "0x0"}, nil))

	var history []spec.TransferRecord
	require.Equal(t, http.StatusOK, ts.get(t, "/api/dma/history?n=2", &history))
	require.Len(t, history, 2)
	assert.Equal(t, "read", history[0].Direction)
	assert.Equal(t, "refused", history[1].Result)
}

func TestApi_DmaLengthBounds(t *testing.T) {
	ts := newTestServer(t)

	for _, words := range []int{0, -1, MaxDmaWords + 1, math.MaxInt} {
		code := ts.post(t, "/api/dma/r", &DmaRead{Offset: "0x0", Words: words}, nil)
		assert.Equal(t, http.StatusBadRequest, code, "words %d", words)
	}
	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/api/dma/w", &DmaWrite{Offset: "0x0"}, nil))
	assert.Zero(t, ts.card.Stats().Transfers)

	res := &DmaResult{}
	require.Equal(t, http.StatusOK, ts.post(t, "/api/dma/r", &DmaRead{Offset: "0x0", Words: 4}, res))
	assert.Len(t, res.Data, 4)
}

func TestControlServer_DmaLengthBounds(t *testing.T) {
	ts := newTestServer(t)
	s := ts.server

	_, result, err := s.DmaRead(context.Background(), 0, MaxDmaWords+1)
	var bad ErrBadLength
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, MaxDmaWords+1, bad.Words)
	assert.Equal(t, spec.ResultFailed, result)

	_, err = s.DmaWrite(context.Background(), 0, nil)
	require.ErrorAs(t, err, &bad)
	assert.Zero(t, ts.card.Stats().Transfers)
}

func TestApi_DmaSerialized(t *testing.T) {
	ts := newTestServer(t)
	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(ts.http.URL+"/api/dma/w", "application/json",
				bytes.NewReader([]byte(`{"offset":"0x0","data":[1,2,3,4]}`)))
			if err != nil {
				return
			}
			resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()
	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, len(codes), ts.card.Stats().Transfers)
}

func TestApi_Metrics(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
