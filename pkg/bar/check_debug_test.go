//go:build specdebug

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

package bar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutOfRangePanics(t *testing.T) {
	r := New(0, make([]byte, 16))
	assert.Panics(t, func() { r.ReadWord(4) })
	assert.Panics(t, func() { r.WriteBlock(2, make([]uint32, 3)) })
	assert.NotPanics(t, func() { r.WriteBlock(2, make([]uint32, 2)) })
}
