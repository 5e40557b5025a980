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

	"jinr.ru/greenlab/go-spec/pkg/device"
)

// Status is the value of the DMA status register
type Status uint32

const (
	StatusIdle    = Status(device.DmaStatIdle)
	StatusDone    = Status(device.DmaStatDone)
	StatusBusy    = Status(device.DmaStatBusy)
	StatusAborted = Status(device.DmaStatAborted)
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusDone:
		return "done"
	case StatusBusy:
		return "busy"
	case StatusAborted:
		return "aborted"
	}
	return fmt.Sprintf("unknown(%d)", uint32(s))
}

// Startable reports whether a new transfer may be started from this status
func (s Status) Startable() bool {
	return s == StatusIdle || s == StatusDone || s == StatusAborted
}

// Result is the outcome of a DMA transfer
type Result int

const (
	ResultCompleted Result = iota
	ResultTimedOut
	ResultAborted
	ResultRefused
	// the transfer could not be set up, e.g. pinning memory failed
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultCompleted:
		return "completed"
	case ResultTimedOut:
		return "timed_out"
	case ResultAborted:
		return "aborted"
	case ResultRefused:
		return "refused"
	case ResultFailed:
		return "failed"
	}
	return fmt.Sprintf("result(%d)", int(r))
}
