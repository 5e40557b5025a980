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

package reg

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spec/pkg/command"
	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/srv/control"
)

const (
	BarOptionName      = "bar"
	AddrOptionName     = "addr"
	ValueOptionName    = "value"
	MaskOptionName     = "mask"
	SnapshotOptionName = "snapshot"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Read and write registers of the served card",
	}
	cmd.AddCommand(NewReadCommand())
	cmd.AddCommand(NewWriteCommand())
	cmd.AddCommand(NewMaskCommand())
	return cmd
}

func printRegs(out io.Writer, regs []*control.RegHex) {
	for _, r := range regs {
		fmt.Fprintf(out, "Register state: %-22s %s = %s\n", r.Name, r.Addr, r.Value)
	}
}

func NewReadCommand() *cobra.Command {
	var bar int
	var addr string
	var snapshot bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read value from register, all BAR4 registers if no address is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			if addr != "" {
				value, err := apiClient.RegRead(bar, addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Register state: BAR%d %s = %s\n", bar, addr, value)
				return nil
			}
			var regs []*control.RegHex
			var err error
			if snapshot {
				regs, err = apiClient.RegSnapshot()
			} else {
				regs, err = apiClient.RegReadAll()
			}
			if err != nil {
				return err
			}
			printRegs(cmd.OutOrStdout(), regs)
			return nil
		},
	}
	cmd.Flags().IntVar(&bar, BarOptionName, 4, "BAR index (0 or 4)")
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register byte address (hexadecimal)")
	cmd.Flags().BoolVar(&snapshot, SnapshotOptionName, false, "Print the registers stored after the last bring-up")
	return cmd
}

func NewWriteCommand() *cobra.Command {
	var bar int
	var addr, value string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write value to register",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.RegWrite(bar, addr, value)
		},
	}
	cmd.Flags().IntVar(&bar, BarOptionName, 4, "BAR index (0 or 4)")
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register byte address (hexadecimal)")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Register value (hexadecimal)")
	cmd.MarkFlagRequired(ValueOptionName)

	return cmd
}

func NewMaskCommand() *cobra.Command {
	var bar int
	var addr, mask, value string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Clear mask bits of register and set value bits",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			return apiClient.RegMaskWrite(bar, addr, mask, value)
		},
	}
	cmd.Flags().IntVar(&bar, BarOptionName, 4, "BAR index (0 or 4)")
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register byte address (hexadecimal)")
	cmd.MarkFlagRequired(AddrOptionName)
	cmd.Flags().StringVar(&mask, MaskOptionName, "", "Bits to clear (hexadecimal)")
	cmd.MarkFlagRequired(MaskOptionName)
	cmd.Flags().StringVar(&value, ValueOptionName, "", "Bits to set (hexadecimal)")
	cmd.MarkFlagRequired(ValueOptionName)

	return cmd
}
