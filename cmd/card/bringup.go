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
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/spec"
)

func NewBringupCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bringup",
		Short: "Configure the card interrupts and print the BAR4 registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			// opening the card runs the bring-up sequence
			return withController(cfg, func(ctrl *spec.Controller) error {
				printRegs(cmd, ctrl.Snapshot())
				return nil
			})
		},
	}
	return cmd
}
