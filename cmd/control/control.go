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

package control

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spec/cmd/control/dma"
	"jinr.ru/greenlab/go-spec/cmd/control/reg"
	"jinr.ru/greenlab/go-spec/pkg/command"
	"jinr.ru/greenlab/go-spec/pkg/config"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Run the control server or send requests to it",
	}
	cmd.AddCommand(NewStartCommand())
	cmd.AddCommand(NewBringupCommand())
	cmd.AddCommand(reg.NewCommand())
	cmd.AddCommand(dma.NewCommand())
	return cmd
}

func NewBringupCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "bringup",
		Short: "Run the bring-up sequence again on the served card",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			regs, err := apiClient.Bringup()
			if err != nil {
				return err
			}
			for _, r := range regs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s = %s\n", r.Name, r.Addr, r.Value)
			}
			return nil
		},
	}
	return cmd
}
