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

package driver

import (
	"fmt"
)

// ErrNoDevice returned when the card with the given index does not exist
type ErrNoDevice struct {
	Card uint
}

func (e ErrNoDevice) Error() string {
	return fmt.Sprintf("No card with index %d", e.Card)
}

// ErrNotOpen returned when the driver is used before Open
type ErrNotOpen struct {
	What string
}

func (e ErrNotOpen) Error() string {
	return fmt.Sprintf("Device is not open: %s", e.What)
}

// ErrBadBar returned for a BAR the card does not expose
type ErrBadBar struct {
	Bar int
}

func (e ErrBadBar) Error() string {
	return fmt.Sprintf("BAR%d is not available", e.Bar)
}
