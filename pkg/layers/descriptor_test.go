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

package layers

import (
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spec/pkg/dma"
	"jinr.ru/greenlab/go-spec/pkg/driver"
)

func buildChain(t *testing.T, entries []driver.SGEntry, dir dma.Direction) *dma.Chain {
	chain := dma.NewChainBuffer(make([]byte, dma.BufferSize(entries)), 0x10_0000)
	_, err := dma.Build(chain, entries, 0, dir)
	require.NoError(t, err)
	return chain
}

func TestDecodeChain(t *testing.T) {
	chain := buildChain(t, []driver.SGEntry{{Addr: 0x1_0000_0000, Size: 3*4096 + 10}}, dma.HostToDevice)

	descs, err := DecodeChain(chain.Bytes())
	require.NoError(t, err)
	assert.Equal(t, chain.Descriptors(), descs)
	assert.Len(t, descs, 4)
	assert.True(t, descs[3].Last())
}

func TestDecodeChain_StopsAtLast(t *testing.T) {
	chain := buildChain(t, []driver.SGEntry{{Addr: 0x2000, Size: 16}}, dma.DeviceToHost)
	data := append(append([]byte{}, chain.Bytes()...), make([]byte, dma.DescriptorSize)...)

	descs, err := DecodeChain(data)
	require.NoError(t, err)
	assert.Len(t, descs, 1)
}

func TestDecodeChain_Truncated(t *testing.T) {
	chain := buildChain(t, []driver.SGEntry{{Addr: 0x2000, Size: 8192}}, dma.DeviceToHost)
	_, err := DecodeChain(chain.Bytes()[:dma.DescriptorSize+5])
	assert.Error(t, err)
}

func TestEncodeChain(t *testing.T) {
	chain := buildChain(t, []driver.SGEntry{{Addr: 0x3000, Size: 5000}}, dma.HostToDevice)
	data, err := EncodeChain(chain.Descriptors())
	require.NoError(t, err)
	assert.Equal(t, chain.Bytes(), data)
}

func TestDescriptorLayer_NextLayerType(t *testing.T) {
	d := &DescriptorLayer{Descriptor: dma.Descriptor{Attr: dma.AttrNotLast}}
	assert.Equal(t, DescriptorLayerType, d.NextLayerType())
	d.Attr = 0
	assert.Equal(t, gopacket.LayerTypeZero, d.NextLayerType())
}

func TestDecodeDescriptor(t *testing.T) {
	_, err := DecodeDescriptor(make([]byte, 10))
	assert.Error(t, err)

	want := dma.Descriptor{CarrierStart: 8, Length: 4, Attr: dma.AttrHostToDevice}
	buf := make([]byte, dma.DescriptorSize)
	want.Put(buf)
	got, err := DecodeDescriptor(buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDescriptorLayerType_Registered(t *testing.T) {
	assert.Equal(t, gopacket.LayerType(DescriptorLayerNum), DescriptorLayerType)
	assert.Equal(t, "DescriptorLayerType", DescriptorLayerType.String())
	assert.Equal(t, DescriptorLayerType, gopacket.LayerType(DescriptorLayerNum).LayerTypes()[0])
}
