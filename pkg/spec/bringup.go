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

	"jinr.ru/greenlab/go-spec/pkg/device"
	"jinr.ru/greenlab/go-spec/pkg/log"
)

// Configure brings up MSI and GPIO interrupt routing of the GN412X bridge
// so that the FPGA interrupts on GPIO8 and GPIO9 reach the driver.
// It does not check the result and may be run again, leaving the same
// register state.
func (c *Controller) Configure() error {
	b4 := c.bar4
	w := func(r device.RegAlias, value uint32) {
		b4.WriteWord(r.Word(), value)
	}

	if b4.ReadWord(device.RegMsiControl.Word()) != device.MsiControlMagic {
		log.Debug("Enabling MSI")
		w(device.RegMsiControl, device.MsiControlMagic)
	}

	for i := 0; i < device.IntCfgCount; i++ {
		w(device.IntCfg(i), 0)
	}
	msiVector := int(b4.ReadWord(device.RegMsiData.Word()) & 0x3)
	w(device.IntCfg(msiVector), device.IntCfgGpio)

	// all GPIOs are inputs
	w(device.RegGpioBypassMode, 0)
	w(device.RegGpioDirectionMode, device.GpioAllLines)
	w(device.RegGpioOutputEnable, 0)

	// edge triggered, active high, only GPIO8 and GPIO9 unmasked
	w(device.RegGpioIntType, 0)
	w(device.RegGpioIntValue, device.GpioIntLines)
	w(device.RegGpioIntOnAny, 0)
	w(device.RegGpioIntMaskSet, device.GpioAllLines)
	w(device.RegGpioIntMaskClr, device.GpioIntLines)

	w(device.RegIntStat, device.IntStatClear)
	w(device.RegIntStat, 0)
	intStat := b4.ReadWord(device.RegIntStat.Word())
	gpioStat := b4.ReadWord(device.RegGpioIntStatus.Word())
	log.Debug("Bridge INT_STAT 0x%x GPIO_INT_STATUS 0x%x, MSI vector %d", intStat, gpioStat, msiVector)

	time.Sleep(c.settleDelay)
	for _, line := range []int{device.IrqDma, device.IrqAux} {
		if err := c.drv.ClearInterruptQueue(line); err != nil {
			return fmt.Errorf("clear interrupt queue %d: %w", line, err)
		}
	}

	c.notifyConfigured(c.Snapshot())
	log.Info("Card %d configured", c.id)
	return nil
}
