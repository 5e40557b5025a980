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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pkgcmd "jinr.ru/greenlab/go-spec/pkg/cmd"
	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/dma"
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/srv/control"
)

func NewDmaCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dma",
		Short: "Run DMA transfers between host memory and card memory",
	}
	cmd.AddCommand(NewDmaStatusCommand(cfg))
	cmd.AddCommand(NewDmaWriteCommand(cfg))
	cmd.AddCommand(NewDmaReadCommand(cfg))
	return cmd
}

func NewDmaStatusCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the DMA engine status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cfg, func(ctrl *spec.Controller) error {
				status := ctrl.Status()
				fmt.Fprintf(cmd.OutOrStdout(), "DMA status: %s (%d)\n", status, uint32(status))
				return nil
			})
		},
	}
	return cmd
}

// transferBytes runs one transfer, again while it is refused if retries > 0
func transferBytes(ctx context.Context, ctrl *spec.Controller, retries uint64, dir dma.Direction, off uint32, buf []byte) (spec.Result, error) {
	return pkgcmd.RetryRefused(ctx, retries, func(ctx context.Context) (spec.Result, error) {
		return ctrl.TransferBytes(ctx, dir, off, buf)
	})
}

func NewDmaWriteCommand(cfg *config.Config) *cobra.Command {
	var offset, file string
	var retries uint64
	cmd := &cobra.Command{
		Use:   "write [VALUE...]",
		Short: "Copy words or a file to card memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			off, err := control.ParseHex(offset)
			if err != nil {
				return err
			}
			var buf []byte
			if file != "" {
				if buf, err = os.ReadFile(file); err != nil {
					return err
				}
			} else {
				words := make([]uint32, len(args))
				for i, arg := range args {
					if words[i], err = control.ParseHex(arg); err != nil {
						return err
					}
				}
				buf = wordsToBytes(words)
			}
			if len(buf) == 0 {
				return fmt.Errorf("nothing to write, give values or --%s", FileOptionName)
			}
			return withController(cfg, func(ctrl *spec.Controller) error {
				result, err := transferBytes(cmd.Context(), ctrl, retries, dma.HostToDevice, off, buf)
				fmt.Fprintf(cmd.OutOrStdout(), "DMA write of %d bytes at offset %s: %s\n", len(buf), offset, result)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&offset, OffsetOptionName, "0x0", "Card memory word offset (hexadecimal)")
	cmd.Flags().StringVar(&file, FileOptionName, "", "File to copy instead of values")
	cmd.Flags().Uint64Var(&retries, RetryOptionName, 0, "Retries while the DMA engine is busy")
	return cmd
}

func NewDmaReadCommand(cfg *config.Config) *cobra.Command {
	var offset, file string
	var words int
	var retries uint64
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Copy card memory to the terminal or a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			off, err := control.ParseHex(offset)
			if err != nil {
				return err
			}
			if words <= 0 {
				return fmt.Errorf("--%s must be positive", WordsOptionName)
			}
			return withController(cfg, func(ctrl *spec.Controller) error {
				buf := make([]byte, words*4)
				result, err := transferBytes(cmd.Context(), ctrl, retries, dma.DeviceToHost, off, buf)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "DMA read of %d bytes at offset %s: %s\n", len(buf), offset, result)
					return err
				}
				if file != "" {
					return os.WriteFile(file, buf, 0644)
				}
				for i, w := range bytesToWords(buf) {
					fmt.Fprintf(cmd.OutOrStdout(), "0x%08x: %s\n", off+uint32(i), control.Hex(w))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&offset, OffsetOptionName, "0x0", "Card memory word offset (hexadecimal)")
	cmd.Flags().IntVar(&words, WordsOptionName, 1, "Number of words to read")
	cmd.Flags().StringVar(&file, FileOptionName, "", "File to write instead of printing words")
	cmd.Flags().Uint64Var(&retries, RetryOptionName, 0, "Retries while the DMA engine is busy")
	return cmd
}
