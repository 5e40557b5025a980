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
	"fmt"
)

// ErrOutOfRange is the panic value for an access beyond the mapped region
type ErrOutOfRange struct {
	Bar int
	Offset uint32
	Count int
	Words uint32
}

func (e ErrOutOfRange) Error() string {
	return fmt.Sprintf("BAR%d access of %d words at word offset 0x%x exceeds region of 0x%x words",
		e.Bar, e.Count, e.Offset, e.Words)
}
