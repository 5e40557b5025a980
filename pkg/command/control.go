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

package command

import (
	"context"

	"jinr.ru/greenlab/go-spec/pkg/cmd"
	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/log"
	"jinr.ru/greenlab/go-spec/pkg/metrics"
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/srv/control"
	"jinr.ru/greenlab/go-spec/pkg/state"
)

// StartControlServer opens the card, brings it up and serves the API until ctx is done
func StartControlServer(ctx context.Context, cfg *config.Config) error {
	st, err := state.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	m := metrics.New()

	ctrl, err := cmd.OpenController(cfg, spec.WithObserver(st), spec.WithObserver(m))
	if err != nil {
		return err
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			log.Warning("Failed to close card %d: %s", cfg.Card, err)
		}
	}()

	s, err := control.NewControlServer(cfg, ctrl, st, m)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
