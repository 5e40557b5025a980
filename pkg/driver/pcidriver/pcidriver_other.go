//go:build !linux

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

package pcidriver

import (
	"context"
	"errors"
	"runtime"

	"jinr.ru/greenlab/go-spec/pkg/driver"
)

var _ driver.Driver = (*Driver)(nil)

var errUnsupported = errors.New("pciDriver is not available on " + runtime.GOOS)

// Driver is unavailable outside of Linux, every call fails
type Driver struct{}

func New() *Driver {
	return &Driver{}
}

func (d *Driver) Open(id uint) error { return errUnsupported }
func (d *Driver) Close() error { return errUnsupported }
func (d *Driver) MapBAR(bar int) ([]byte, error) { return nil, errUnsupported }
func (d *Driver) UnmapBAR(bar int) error { return errUnsupported }
func (d *Driver) ClearInterruptQueue(line int) error { return errUnsupported }
func (d *Driver) MapUserMemory(buf []byte) (driver.UserMemory, error) {
	return nil, errUnsupported
}
func (d *Driver) AllocKernelMemory(size int) (driver.KernelMemory, error) {
	return nil, errUnsupported
}
func (d *Driver) WaitForInterrupt(ctx context.Context, line int) error {
	return errUnsupported
}
