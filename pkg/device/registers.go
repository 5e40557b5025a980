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

// Package device holds the register map of the SPEC carrier and its GN412X bridge.
package device

import (
	"fmt"
)

// BAR numbers used by the card
const (
	Bar0 = 0
	Bar4 = 4
)

// BAR0 word offsets of the DMA engine. Words DmaCStart..DmaAttrib form the
// register window a descriptor is installed into.
const (
	DmaCtrl    uint32 = 0
	DmaStat    uint32 = 1
	DmaCStart  uint32 = 2
	DmaHStartL uint32 = 3
	DmaHStartH uint32 = 4
	DmaLength  uint32 = 5
	DmaNextL   uint32 = 6
	DmaNextH   uint32 = 7
	DmaAttrib  uint32 = 8

	DmaWindowWords = 7
)

const (
	DmaCtrlStart uint32 = 0x1
)

// DMA status register values
const (
	DmaStatIdle    uint32 = 0
	DmaStatDone    uint32 = 1
	DmaStatBusy    uint32 = 2
	DmaStatAborted uint32 = 3
)

// Interrupt lines of the kernel driver
const (
	IrqDma = 0
	IrqAux = 1
)

type RegAlias int

const (
	RegMsiControl RegAlias = iota
	RegMsiData
	RegIntCtrl
	RegIntStat
	RegIntCfg0
	RegIntCfg1
	RegIntCfg2
	RegIntCfg3
	RegIntCfg4
	RegIntCfg5
	RegIntCfg6
	RegIntCfg7
	RegGpioBypassMode
	RegGpioDirectionMode
	RegGpioOutputEnable
	RegGpioOutputValue
	RegGpioInputValue
	RegGpioIntMask
	RegGpioIntMaskClr
	RegGpioIntMaskSet
	RegGpioIntStatus
	RegGpioIntType
	RegGpioIntValue
	RegGpioIntOnAny
	RegAliasLimit
)

const (
	RegIntCfgBase uint32 = 0x820
	RegGpioBase   uint32 = 0xA00
	IntCfgCount          = 8
)

// BAR4 byte addresses, see GN412X RM
var RegMap = map[RegAlias]uint32{
	RegMsiControl:        0x48,
	RegMsiData:           0x54,
	RegIntCtrl:           0x810,
	RegIntStat:           0x814,
	RegIntCfg0:           RegIntCfgBase + 0x00,
	RegIntCfg1:           RegIntCfgBase + 0x04,
	RegIntCfg2:           RegIntCfgBase + 0x08,
	RegIntCfg3:           RegIntCfgBase + 0x0C,
	RegIntCfg4:           RegIntCfgBase + 0x10,
	RegIntCfg5:           RegIntCfgBase + 0x14,
	RegIntCfg6:           RegIntCfgBase + 0x18,
	RegIntCfg7:           RegIntCfgBase + 0x1C,
	RegGpioBypassMode:    RegGpioBase + 0x00,
	RegGpioDirectionMode: RegGpioBase + 0x04,
	RegGpioOutputEnable:  RegGpioBase + 0x08,
	RegGpioOutputValue:   RegGpioBase + 0x0C,
	RegGpioInputValue:    RegGpioBase + 0x10,
	RegGpioIntMask:       RegGpioBase + 0x14,
	RegGpioIntMaskClr:    RegGpioBase + 0x18,
	RegGpioIntMaskSet:    RegGpioBase + 0x1C,
	RegGpioIntStatus:     RegGpioBase + 0x20,
	RegGpioIntType:       RegGpioBase + 0x24,
	RegGpioIntValue:      RegGpioBase + 0x28,
	RegGpioIntOnAny:      RegGpioBase + 0x2C,
}

var regNames = map[RegAlias]string{
	RegMsiControl:        "msi_control",
	RegMsiData:           "msi_data",
	RegIntCtrl:           "int_ctrl",
	RegIntStat:           "int_stat",
	RegIntCfg0:           "int_cfg0",
	RegIntCfg1:           "int_cfg1",
	RegIntCfg2:           "int_cfg2",
	RegIntCfg3:           "int_cfg3",
	RegIntCfg4:           "int_cfg4",
	RegIntCfg5:           "int_cfg5",
	RegIntCfg6:           "int_cfg6",
	RegIntCfg7:           "int_cfg7",
	RegGpioBypassMode:    "gpio_bypass_mode",
	RegGpioDirectionMode: "gpio_direction_mode",
	RegGpioOutputEnable:  "gpio_output_enable",
	RegGpioOutputValue:   "gpio_output_value",
	RegGpioInputValue:    "gpio_input_value",
	RegGpioIntMask:       "gpio_int_mask",
	RegGpioIntMaskClr:    "gpio_int_mask_clr",
	RegGpioIntMaskSet:    "gpio_int_mask_set",
	RegGpioIntStatus:     "gpio_int_status",
	RegGpioIntType:       "gpio_int_type",
	RegGpioIntValue:      "gpio_int_value",
	RegGpioIntOnAny:      "gpio_int_on_any",
}

// Addr is the byte address of the register in BAR4
func (r RegAlias) Addr() uint32 {
	return RegMap[r]
}

// Word is the word offset of the register in BAR4
func (r RegAlias) Word() uint32 {
	return RegMap[r] / 4
}

func (r RegAlias) String() string {
	if name, ok := regNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reg(%d)", int(r))
}

// IntCfg returns the alias of interrupt configuration register i
func IntCfg(i int) RegAlias {
	return RegIntCfg0 + RegAlias(i)
}

// Values written during bring-up
const (
	MsiControlMagic uint32 = 0x00A55805
	// route GPIO interrupts to the MSI vector
	IntCfgGpio uint32 = 0x800C
	// GPIO8 and GPIO9 carry the FPGA interrupts
	GpioIntLines uint32 = 0x0300
	GpioAllLines uint32 = 0xFFFF
	IntStatClear uint32 = 0xFFF0

	// set in GPIO_INT_STATUS when the DMA engine finishes
	GpioIntDma uint32 = 0x0100
)
