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

package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/dma"
	"jinr.ru/greenlab/go-spec/pkg/driver/sim"
	"jinr.ru/greenlab/go-spec/pkg/spec"
)

// find returns the metric of family name whose labels include all of labels
func find(t *testing.T, m *Metrics, name string, labels map[string]string) *dto.Metric {
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range f.GetMetric() {
			got := map[string]string{}
			for _, l := range metric.GetLabel() {
				got[l.GetName()] = l.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metrics
				}
			}
			return metric
		}
	}
	return nil
}

func TestMetrics_Observer(t *testing.T) {
	m := New()
	card := sim.New()
	c, err := spec.NewController(card, 0, spec.WithSettleDelay(0), spec.WithObserver(m))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.TransferBytes(ctx, dma.HostToDevice, 0, make([]byte, 8192))
	require.NoError(t, err)
	card.SetDmaStatus(device.DmaStatBusy)
	_, err = c.WriteDma(ctx, 0, []uint32{1})
	require.Error(t, err)

	bringups := find(t, m, "gospec_bringups_total", map[string]string{"card": "0"})
	require.NotNil(t, bringups)
	assert.Equal(t, 1.0, bringups.GetCounter().GetValue())

	completed := find(t, m, "gospec_dma_transfers_total", map[string]string{"direction": "write", "result": "completed"})
	require.NotNil(t, completed)
	assert.Equal(t, 1.0, completed.GetCounter().GetValue())

	refused := find(t, m, "gospec_dma_transfers_total", map[string]string{"direction": "write", "result": "refused"})
	require.NotNil(t, refused)
	assert.Equal(t, 1.0, refused.GetCounter().GetValue())

	bytes := find(t, m, "gospec_dma_bytes_total", map[string]string{"direction": "write"})
	require.NotNil(t, bytes)
	assert.Equal(t, 8192.0, bytes.GetCounter().GetValue())

	descs := find(t, m, "gospec_dma_chain_descriptors", map[string]string{"card": "0"})
	require.NotNil(t, descs)
	assert.Equal(t, uint64(1), descs.GetHistogram().GetSampleCount())
	assert.Equal(t, 2.0, descs.GetHistogram().GetSampleSum())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Configured(3, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gospec_bringups_total{card="3"} 1`)
}
