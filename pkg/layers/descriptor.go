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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-spec/pkg/dma"
)

const (
	// DescriptorLayerNum identifies the layer
	DescriptorLayerNum = 2001
)

// DescriptorLayer is one GN412X scatter-gather descriptor.
// A chain stored back to back decodes as a sequence of these layers
// ending with the descriptor that has the not-last attribute cleared.
type DescriptorLayer struct {
	layers.BaseLayer
	dma.Descriptor
}

var DescriptorLayerType gopacket.LayerType

// the decoder refers back to the layer type, so registration can't be a var initializer
func init() {
	DescriptorLayerType = gopacket.RegisterLayerType(DescriptorLayerNum,
		gopacket.LayerTypeMetadata{Name: "DescriptorLayerType", Decoder: gopacket.DecodeFunc(DecodeDescriptorLayer)})
}

// LayerType returns the type of the descriptor layer in the layer catalog
func (d *DescriptorLayer) LayerType() gopacket.LayerType {
	return DescriptorLayerType
}

func (d *DescriptorLayer) CanDecode() gopacket.LayerClass {
	return DescriptorLayerType
}

// NextLayerType chains to another descriptor unless this one is the last
func (d *DescriptorLayer) NextLayerType() gopacket.LayerType {
	if d.Last() {
		return gopacket.LayerTypeZero
	}
	return DescriptorLayerType
}

// SerializeTo prepends the descriptor to the SerializeBuffer
func (d *DescriptorLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(dma.DescriptorSize)
	if err != nil {
		return err
	}
	d.Descriptor.Put(bytes)
	return nil
}

func (d *DescriptorLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < dma.DescriptorSize {
		df.SetTruncated()
		return fmt.Errorf("descriptor needs %d bytes, got %d", dma.DescriptorSize, len(data))
	}
	d.BaseLayer = layers.BaseLayer{
		Contents: data[:dma.DescriptorSize],
		Payload:  data[dma.DescriptorSize:],
	}
	d.Descriptor = dma.DescriptorFromBytes(data)
	return nil
}

func DecodeDescriptorLayer(data []byte, p gopacket.PacketBuilder) error {
	d := &DescriptorLayer{}
	err := d.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(d)
	if d.Last() {
		return nil
	}
	return p.NextDecoder(DescriptorLayerType)
}

// DecodeDescriptor decodes a single descriptor from the head of data
func DecodeDescriptor(data []byte) (dma.Descriptor, error) {
	d := &DescriptorLayer{}
	if err := d.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return dma.Descriptor{}, err
	}
	return d.Descriptor, nil
}

// DecodeChain decodes descriptors stored back to back in data
// up to and including the last one
func DecodeChain(data []byte) ([]dma.Descriptor, error) {
	packet := gopacket.NewPacket(data, DescriptorLayerType, gopacket.NoCopy)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, fmt.Errorf("decode descriptor chain: %w", errLayer.Error())
	}
	var descs []dma.Descriptor
	for _, layer := range packet.Layers() {
		if d, ok := layer.(*DescriptorLayer); ok {
			descs = append(descs, d.Descriptor)
		}
	}
	return descs, nil
}

// EncodeChain serializes descriptors back to back
func EncodeChain(descs []dma.Descriptor) ([]byte, error) {
	serializable := make([]gopacket.SerializableLayer, len(descs))
	for i := range descs {
		serializable[i] = &DescriptorLayer{Descriptor: descs[i]}
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, serializable...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
