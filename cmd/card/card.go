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

// Package card holds the commands that open the card directly,
// without going through the control server.
package card

import (
	"fmt"

	"github.com/spf13/cobra"

	pkgcmd "jinr.ru/greenlab/go-spec/pkg/cmd"
	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/log"
	"jinr.ru/greenlab/go-spec/pkg/spec"
)

const (
	CardOptionName       = "card"
	SimulateOptionName   = "simulate"
	IRQTimeoutOptionName = "irq-timeout"
	BarOptionName        = "bar"
	AddrOptionName       = "addr"
	ValueOptionName      = "value"
	MaskOptionName       = "mask"
	OffsetOptionName     = "offset"
	WordsOptionName      = "words"
	FileOptionName       = "file"
	RetryOptionName      = "retry"
)

func NewCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Work with the card directly",
	}
	cmd.AddCommand(NewBringupCommand(cfg))
	cmd.AddCommand(NewRegCommand(cfg))
	cmd.AddCommand(NewDmaCommand(cfg))
	cmd.AddCommand(NewSelftestCommand(cfg))
	cmd.PersistentFlags().UintVar(&cfg.Card, CardOptionName, cfg.Card, "Card index")
	cmd.PersistentFlags().BoolVar(&cfg.Simulate, SimulateOptionName, cfg.Simulate, "Use the simulated card instead of the kernel driver")
	cmd.PersistentFlags().DurationVar(&cfg.IRQTimeout, IRQTimeoutOptionName, cfg.IRQTimeout, "DMA completion interrupt timeout")
	return cmd
}

// withController opens and brings up the card, runs f and closes the card
func withController(cfg *config.Config, f func(ctrl *spec.Controller) error) error {
	ctrl, err := pkgcmd.OpenController(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			log.Warning("Failed to close card %d: %s", cfg.Card, err)
		}
	}()
	return f(ctrl)
}

func printRegs(cmd *cobra.Command, regs []spec.RegValue) {
	for _, reg := range regs {
		fmt.Fprintf(cmd.OutOrStdout(), "%-22s 0x%04x = 0x%08x\n", reg.Name, reg.Addr, reg.Value)
	}
}
