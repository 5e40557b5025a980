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
	"context"
	"fmt"
	"sync"

	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/log"
	"jinr.ru/greenlab/go-spec/pkg/metrics"
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-spec/pkg/state"
)

// MaxDmaWords bounds a single DMA request, 64 MiB
const MaxDmaWords = 64 << 20 / 4

func checkLength(words int) error {
	if words <= 0 || words > MaxDmaWords {
		return ErrBadLength{Words: words}
	}
	return nil
}

// ControlServer shares one card between API requests.
// Every controller call holds mu: the controller itself is not safe for
// concurrent use and a transfer must not start while another one runs.
type ControlServer struct {
	*config.Config
	mu      sync.Mutex
	ctrl    *spec.Controller
	state   *state.State
	metrics *metrics.Metrics
	api     ifc.ApiServer
}

var _ ifc.ControlServer = &ControlServer{}

// NewControlServer serves ctrl. The state and metrics must be registered
// as observers of ctrl by the caller.
func NewControlServer(cfg *config.Config, ctrl *spec.Controller, st *state.State, m *metrics.Metrics) (*ControlServer, error) {
	log.Debug("Initializing control server for card %d", ctrl.ID())
	s := &ControlServer{
		Config:  cfg,
		ctrl:    ctrl,
		state:   st,
		metrics: m,
	}
	api, err := NewApiServer(cfg, s, m)
	if err != nil {
		return nil, err
	}
	s.api = api
	return s, nil
}

func (s *ControlServer) Run(ctx context.Context) error {
	return s.api.Run(ctx)
}

func (s *ControlServer) checkAddr(bar int, addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, ErrBadAddr{Addr: addr, Reason: "not word aligned"}
	}
	region, err := s.ctrl.Bar(bar)
	if err != nil {
		return 0, err
	}
	if addr/4 >= region.Words() {
		return 0, ErrBadAddr{Addr: addr, Reason: fmt.Sprintf("outside of BAR%d", bar)}
	}
	return addr / 4, nil
}

func (s *ControlServer) RegRead(bar int, addr uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	off, err := s.checkAddr(bar, addr)
	if err != nil {
		return 0, err
	}
	region, _ := s.ctrl.Bar(bar)
	return region.ReadWord(off), nil
}

func (s *ControlServer) RegWrite(bar int, addr, value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	off, err := s.checkAddr(bar, addr)
	if err != nil {
		return err
	}
	region, _ := s.ctrl.Bar(bar)
	region.WriteWord(off, value)
	return nil
}

func (s *ControlServer) RegMaskWrite(bar int, addr, mask, value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	off, err := s.checkAddr(bar, addr)
	if err != nil {
		return err
	}
	region, _ := s.ctrl.Bar(bar)
	region.MaskWrite(off, mask, value)
	return nil
}

func (s *ControlServer) RegReadAll() []spec.RegValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Snapshot()
}

func (s *ControlServer) RegSnapshot() ([]spec.RegValue, error) {
	return s.state.GetRegAll(s.ctrl.ID())
}

func (s *ControlServer) Configure() ([]spec.RegValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctrl.Configure(); err != nil {
		return nil, err
	}
	return s.ctrl.Snapshot(), nil
}

func (s *ControlServer) DmaStatus() spec.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Status()
}

func (s *ControlServer) DmaWrite(ctx context.Context, offset uint32, data []uint32) (spec.Result, error) {
	if err := checkLength(len(data)); err != nil {
		return spec.ResultFailed, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.WriteDma(ctx, offset, data)
}

func (s *ControlServer) DmaRead(ctx context.Context, offset uint32, words int) ([]uint32, spec.Result, error) {
	if err := checkLength(words); err != nil {
		return nil, spec.ResultFailed, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data := make([]uint32, words)
	result, err := s.ctrl.ReadDma(ctx, offset, data)
	if err != nil {
		return nil, result, err
	}
	return data, result, nil
}

func (s *ControlServer) DmaHistory(n int) ([]spec.TransferRecord, error) {
	return s.state.History(s.ctrl.ID(), n)
}
