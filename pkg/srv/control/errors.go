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
	"fmt"
)

// ErrBadAddr returned for a register address that can not be accessed
type ErrBadAddr struct {
	Addr   uint32
	Reason string
}

func (e ErrBadAddr) Error() string {
	return fmt.Sprintf("Bad register address 0x%x: %s", e.Addr, e.Reason)
}

// ErrBadLength returned for a DMA request size outside 1..MaxDmaWords
type ErrBadLength struct {
	Words int
}

func (e ErrBadLength) Error() string {
	return fmt.Sprintf("Bad DMA length %d words: must be 1..%d", e.Words, MaxDmaWords)
}
