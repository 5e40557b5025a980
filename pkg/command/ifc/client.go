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

package ifc

import (
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/srv/control"
)

// ApiClient talks to a running control server
type ApiClient interface {
	RegRead(bar int, addr string) (string, error)
	RegWrite(bar int, addr, value string) error
	RegMaskWrite(bar int, addr, mask, value string) error
	RegReadAll() ([]*control.RegHex, error)
	RegSnapshot() ([]*control.RegHex, error)
	Bringup() ([]*control.RegHex, error)

	DmaStatus() (*control.DmaStatus, error)
	DmaWrite(offset string, data []uint32) (*control.DmaResult, error)
	DmaRead(offset string, words int) (*control.DmaResult, error)
	DmaHistory(n int) ([]spec.TransferRecord, error)
}
