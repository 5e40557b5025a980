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
	"context"

	"jinr.ru/greenlab/go-spec/pkg/spec"
)

type ControlServer interface {
	Run(ctx context.Context) error

	RegRead(bar int, addr uint32) (uint32, error)
	RegWrite(bar int, addr, value uint32) error
	RegMaskWrite(bar int, addr, mask, value uint32) error
	RegReadAll() []spec.RegValue
	// RegSnapshot returns the BAR4 snapshot stored after the last bring-up
	RegSnapshot() ([]spec.RegValue, error)

	Configure() ([]spec.RegValue, error)
	DmaStatus() spec.Status
	DmaWrite(ctx context.Context, offset uint32, data []uint32) (spec.Result, error)
	DmaRead(ctx context.Context, offset uint32, words int) ([]uint32, spec.Result, error)
	DmaHistory(n int) ([]spec.TransferRecord, error)
}

type ApiServer interface {
	Run(ctx context.Context) error
}
