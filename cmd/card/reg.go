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

package card

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spec/pkg/bar"
	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/srv/control"
)

func NewRegCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Read and write BAR0 and BAR4 registers",
	}
	cmd.AddCommand(NewRegReadCommand(cfg))
	cmd.AddCommand(NewRegWriteCommand(cfg))
	cmd.AddCommand(NewRegMaskCommand(cfg))
	return cmd
}

// region returns the BAR and the word offset of the byte address addr
func region(ctrl *spec.Controller, barIndex int, addr string) (*bar.Region, uint32, error) {
	a, err := control.ParseHex(addr)
	if err != nil {
		return nil, 0, err
	}
	if a%4 != 0 {
		return nil, 0, control.ErrBadAddr{Addr: a, Reason: "not word aligned"}
	}
	r, err := ctrl.Bar(barIndex)
	if err != nil {
		return nil, 0, err
	}
	if a/4 >= r.Words() {
		return nil, 0, control.ErrBadAddr{Addr: a, Reason: fmt.Sprintf("outside of BAR%d", barIndex)}
	}
	return r, a / 4, nil
}

func NewRegReadCommand(cfg *config.Config) *cobra.Command {
	var barIndex int
	var addr string
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read value from register, all BAR4 registers if no address is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cfg, func(ctrl *spec.Controller) error {
				if addr == "" {
					printRegs(cmd, ctrl.Snapshot())
					return nil
				}
				r, off, err := region(ctrl, barIndex, addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Register state: BAR%d %s = %s\n", barIndex, addr, control.Hex(r.ReadWord(off)))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&barIndex, BarOptionName, 4, "BAR index (0 or 4)")
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register byte address (hexadecimal)")
	return cmd
}

func NewRegWriteCommand(cfg *config.Config) *cobra.Command {
	var barIndex int
	var addr, value string
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write value to register",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := control.ParseHex(value)
			if err != nil {
				return err
			}
			return withController(cfg, func(ctrl *spec.Controller) error {
				r, off, err := region(ctrl, barIndex, addr)
				if err != nil {
					return err
				}
				r.WriteWord(off, v)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&barIndex, BarOptionName, 4, "BAR index (0 or 4)")
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register byte address (hexadecimal)")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Register value (hexadecimal)")
	cmd.MarkFlagRequired(ValueOptionName)
	return cmd
}

func NewRegMaskCommand(cfg *config.Config) *cobra.Command {
	var barIndex int
	var addr, mask, value string
	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Clear mask bits of register and set value bits",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := control.ParseHex(mask)
			if err != nil {
				return err
			}
			v, err := control.ParseHex(value)
			if err != nil {
				return err
			}
			return withController(cfg, func(ctrl *spec.Controller) error {
				r, off, err := region(ctrl, barIndex, addr)
				if err != nil {
					return err
				}
				r.MaskWrite(off, m, v)
				fmt.Fprintf(cmd.OutOrStdout(), "Register state: BAR%d %s = %s\n", barIndex, addr, control.Hex(r.ReadWord(off)))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&barIndex, BarOptionName, 4, "BAR index (0 or 4)")
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register byte address (hexadecimal)")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().StringVar(&mask, MaskOptionName, "", "Bits to clear (hexadecimal)")
	cmd.MarkFlagRequired(MaskOptionName)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Bits to set (hexadecimal)")
	cmd.MarkFlagRequired(ValueOptionName)
	return cmd
}
