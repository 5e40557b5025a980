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

	"jinr.ru/greenlab/go-spec/pkg/command"
	"jinr.ru/greenlab/go-spec/pkg/config"
)

const (
	AddressOptionName  = "address"
	PortOptionName     = "port"
	CardOptionName     = "card"
	SimulateOptionName = "simulate"
)

func NewStartCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.StartControlServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.ApiConfig.Address, AddressOptionName, cfg.ApiConfig.Address, fmt.Sprintf("IP to bind. E.g. %s", config.DefaultApiAddress))
	cmd.Flags().IntVar(&cfg.ApiConfig.Port, PortOptionName, cfg.ApiConfig.Port, "Port to bind")
	cmd.Flags().UintVar(&cfg.Card, CardOptionName, cfg.Card, "Card index")
	cmd.Flags().BoolVar(&cfg.Simulate, SimulateOptionName, cfg.Simulate, "Serve the simulated card instead of the kernel driver")

	return cmd
}
