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

package spec

import (
	"fmt"
	"time"
)

// ErrCardOpen returned when the driver can not open the card
type ErrCardOpen struct {
	Card uint
	Err  error
}

func (e ErrCardOpen) Error() string {
	return fmt.Sprintf("Can not open card %d: %s", e.Card, e.Err)
}

func (e ErrCardOpen) Unwrap() error {
	return e.Err
}

// ErrBarMap returned when a BAR of an opened card can not be mapped
type ErrBarMap struct {
	Bar int
	Err error
}

func (e ErrBarMap) Error() string {
	return fmt.Sprintf("Can not map BAR%d: %s", e.Bar, e.Err)
}

func (e ErrBarMap) Unwrap() error {
	return e.Err
}

// ErrTransferRefused returned when the DMA engine is not ready for a new transfer.
// Nothing was written to the card.
type ErrTransferRefused struct {
	Status Status
}

func (e ErrTransferRefused) Error() string {
	return fmt.Sprintf("DMA transfer refused, engine status is %s", e.Status)
}

// ErrTransferTimeout returned when the completion interrupt did not arrive in time
type ErrTransferTimeout struct {
	Timeout time.Duration
	Err     error
}

func (e ErrTransferTimeout) Error() string {
	return fmt.Sprintf("DMA transfer did not complete within %s", e.Timeout)
}

func (e ErrTransferTimeout) Unwrap() error {
	return e.Err
}

// ErrTransferAborted returned when the engine reports the transfer as aborted
type ErrTransferAborted struct {
	Status Status
}

func (e ErrTransferAborted) Error() string {
	return fmt.Sprintf("DMA transfer aborted by the card, status %s", e.Status)
}

// ErrClosed returned when the card handle is already closed
type ErrClosed struct{}

func (e ErrClosed) Error() string {
	return "Card handle is closed"
}
