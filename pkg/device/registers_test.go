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

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegMap(t *testing.T) {
	seen := map[uint32]RegAlias{}
	for r := RegAlias(0); r < RegAliasLimit; r++ {
		addr, ok := RegMap[r]
		if !assert.True(t, ok, "no address for %s", r) {
			continue
		}
		assert.Zero(t, addr%4, "%s is not word aligned", r)
		prev, dup := seen[addr]
		assert.False(t, dup, "%s and %s share address 0x%x", r, prev, addr)
		seen[addr] = r
		assert.NotContains(t, r.String(), "reg(")
	}
}

func TestIntCfg(t *testing.T) {
	for i := 0; i < IntCfgCount; i++ {
		assert.Equal(t, RegIntCfgBase+uint32(4*i), IntCfg(i).Addr())
	}
	assert.Equal(t, uint32(0xA20/4), RegGpioIntStatus.Word())
	assert.Equal(t, "reg(1000)", RegAlias(1000).String())
}
