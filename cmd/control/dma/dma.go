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

package dma

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spec/pkg/command"
	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/srv/control"
)

const (
	OffsetOptionName = "offset"
	WordsOptionName  = "words"
	LastOptionName   = "last"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dma",
		Short: "Run DMA transfers on the served card",
	}
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewWriteCommand())
	cmd.AddCommand(NewReadCommand())
	cmd.AddCommand(NewHistoryCommand())
	return cmd
}

func NewStatusCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the DMA engine status",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			status, err := apiClient.DmaStatus()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DMA status: %s (%d)\n", status.Status, status.Value)
			return nil
		},
	}
	return cmd
}

func NewWriteCommand() *cobra.Command {
	var offset string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "write VALUE...",
		Short: "Copy words to card memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := make([]uint32, len(args))
			for i, arg := range args {
				v, err := control.ParseHex(arg)
				if err != nil {
					return err
				}
				data[i] = v
			}
			apiClient := command.NewApiClient(cfg)
			result, err := apiClient.DmaWrite(offset, data)
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "DMA write at offset %s: %s\n", offset, result.Result)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&offset, OffsetOptionName, "0x0", "Card memory word offset (hexadecimal)")
	return cmd
}

func NewReadCommand() *cobra.Command {
	var offset string
	var words int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print words of card memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			off, err := control.ParseHex(offset)
			if err != nil {
				return err
			}
			apiClient := command.NewApiClient(cfg)
			result, err := apiClient.DmaRead(offset, words)
			if err != nil {
				if result != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "DMA read at offset %s: %s\n", offset, result.Result)
				}
				return err
			}
			for i, w := range result.Data {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%08x: %s\n", off+uint32(i), control.Hex(w))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&offset, OffsetOptionName, "0x0", "Card memory word offset (hexadecimal)")
	cmd.Flags().IntVar(&words, WordsOptionName, 1, "Number of words to read")
	return cmd
}

func NewHistoryCommand() *cobra.Command {
	var last int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the latest transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			recs, err := apiClient.DmaHistory(last)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				line := fmt.Sprintf("%s %-5s offset=0x%x bytes=%d descriptors=%d %s status=%s in %s",
					rec.Time.Format(time.RFC3339), rec.Direction, rec.Offset, rec.Bytes,
					rec.Descriptors, rec.Result, rec.Status, rec.Duration)
				if rec.Error != "" {
					line += ": " + rec.Error
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&last, LastOptionName, 10, "Number of transfers to print, 0 for all")
	return cmd
}
