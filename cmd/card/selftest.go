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
	"bytes"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/dma"
	"jinr.ru/greenlab/go-spec/pkg/spec"
)

// selftestSizes cover a single word, one full chunk, a chunk plus a byte and 1 MiB
var selftestSizes = []int{4, dma.MaxChunk, dma.MaxChunk + 1, 1 << 20}

func NewSelftestCommand(cfg *config.Config) *cobra.Command {
	var offset uint32
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Write random data to card memory, read it back and compare",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cfg, func(ctrl *spec.Controller) error {
				rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
				for _, size := range selftestSizes {
					if err := roundTrip(cmd, ctrl, rnd, offset, size); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&offset, OffsetOptionName, 0, "Card memory word offset")
	return cmd
}

func roundTrip(cmd *cobra.Command, ctrl *spec.Controller, rnd *rand.Rand, off uint32, size int) error {
	out := make([]byte, size)
	rnd.Read(out)
	start := time.Now()
	if _, err := ctrl.TransferBytes(cmd.Context(), dma.HostToDevice, off, out); err != nil {
		return fmt.Errorf("write %d bytes: %w", size, err)
	}
	in := make([]byte, size)
	if _, err := ctrl.TransferBytes(cmd.Context(), dma.DeviceToHost, off, in); err != nil {
		return fmt.Errorf("read %d bytes: %w", size, err)
	}
	if !bytes.Equal(out, in) {
		return fmt.Errorf("%d bytes read back differ from the written data", size)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%8d bytes: ok in %s\n", size, time.Since(start))
	return nil
}
