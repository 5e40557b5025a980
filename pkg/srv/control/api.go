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

// go-spec API
//
// # RESTful APIs to interact with the SPEC card controller
//
// Schemes: http
// Host: localhost:8010
// Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/log"
	"jinr.ru/greenlab/go-spec/pkg/metrics"
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/srv/control/ifc"
)

// RegHex is a register of BAR0 or BAR4, the address is a byte address
type RegHex struct {
	Bar   int    `json:"bar"`
	Name  string `json:"name,omitempty"`
	Addr  string `json:"addr"`  // hexadecimal
	Value string `json:"value"` // hexadecimal
}

// RegMaskHex clears Mask bits of the register and sets Value bits
type RegMaskHex struct {
	Addr  string `json:"addr"`
	Mask  string `json:"mask"`
	Value string `json:"value"`
}

type DmaStatus struct {
	Status string `json:"status"`
	Value  uint32 `json:"value"`
}

// DmaWrite copies Data to card memory at word offset Offset
type DmaWrite struct {
	Offset string   `json:"offset"` // hexadecimal
	Data   []uint32 `json:"data"`
}

// DmaRead reads Words words of card memory at word offset Offset
type DmaRead struct {
	Offset string `json:"offset"` // hexadecimal
	Words  int    `json:"words"`
}

type DmaResult struct {
	Result string   `json:"result"`
	Data   []uint32 `json:"data,omitempty"`
	Error  string   `json:"error,omitempty"`
}

func Hex(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}

func ParseHex(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

type ApiServer struct {
	*config.Config
	*mux.Router
	ctrl    ifc.ControlServer
	metrics *metrics.Metrics
}

var _ ifc.ApiServer = &ApiServer{}

func NewApiServer(cfg *config.Config, ctrl ifc.ControlServer, m *metrics.Metrics) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s", cfg.ApiAddr())
	s := &ApiServer{
		Config:  cfg,
		ctrl:    ctrl,
		metrics: m,
	}
	s.configureRouter()
	return s, nil
}

// Handler returns the router wrapped into the request logger
func (s *ApiServer) Handler() http.Handler {
	return handlers.LoggingHandler(log.Writer(), s.Router)
}

// Run serves the API until ctx is done
func (s *ApiServer) Run(ctx context.Context) error {
	log.Info("Starting API server: address: %s", s.ApiAddr())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.ApiAddr(),
	}
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	// swagger:operation GET /reg/r/{bar}/{addr} read register
	// ---
	// summary: read a register of BAR0 or BAR4
	subRouter.HandleFunc("/reg/r/{bar:0|4}/{addr:0x[0-9a-fA-F]+}", s.handleRegRead()).Methods("GET")
	// swagger:operation POST /reg/w/{bar} write register
	subRouter.HandleFunc("/reg/w/{bar:0|4}", s.handleRegWrite()).Methods("POST")
	// swagger:operation POST /reg/m/{bar} read-modify-write register
	subRouter.HandleFunc("/reg/m/{bar:0|4}", s.handleRegMaskWrite()).Methods("POST")
	// swagger:operation GET /reg/all read the bridge registers
	subRouter.HandleFunc("/reg/all", s.handleRegReadAll()).Methods("GET")
	// swagger:operation GET /reg/snapshot bridge registers stored after bring-up
	subRouter.HandleFunc("/reg/snapshot", s.handleRegSnapshot()).Methods("GET")
	// swagger:operation POST /bringup run the bring-up sequence again
	subRouter.HandleFunc("/bringup", s.handleBringup()).Methods("POST")
	subRouter.HandleFunc("/dma/status", s.handleDmaStatus()).Methods("GET")
	subRouter.HandleFunc("/dma/w", s.handleDmaWrite()).Methods("POST")
	subRouter.HandleFunc("/dma/r", s.handleDmaRead()).Methods("POST")
	subRouter.HandleFunc("/dma/history", s.handleDmaHistory()).Methods("GET")
	if s.metrics != nil {
		s.Router.Handle(s.MetricsPath, s.metrics.Handler()).Methods("GET")
	}
}

func regsHex(regs []spec.RegValue) []*RegHex {
	result := []*RegHex{}
	for _, reg := range regs {
		result = append(result, &RegHex{Bar: 4, Name: reg.Name, Addr: Hex(reg.Addr), Value: Hex(reg.Value)})
	}
	return result
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func regError(w http.ResponseWriter, err error) {
	var bad ErrBadAddr
	if errors.As(err, &bad) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusNotFound)
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: bar: %s, addr: %s", vars["bar"], vars["addr"])

		bar, _ := strconv.Atoi(vars["bar"])
		addr, err := ParseHex(vars["addr"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := s.ctrl.RegRead(bar, addr)
		if err != nil {
			regError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, &RegHex{Bar: bar, Addr: Hex(addr), Value: Hex(value)})
	}
}

func (s *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		bar, _ := strconv.Atoi(vars["bar"])

		regHex := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(regHex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling reg write request: bar: %d addr: %s value: %s", bar, regHex.Addr, regHex.Value)

		addr, err := ParseHex(regHex.Addr)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := ParseHex(regHex.Value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.ctrl.RegWrite(bar, addr, value); err != nil {
			regError(w, err)
			return
		}
	}
}

func (s *ApiServer) handleRegMaskWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		bar, _ := strconv.Atoi(vars["bar"])

		regMask := &RegMaskHex{}
		if err := json.NewDecoder(r.Body).Decode(regMask); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var parsed [3]uint32
		for i, str := range []string{regMask.Addr, regMask.Mask, regMask.Value} {
			v, err := ParseHex(str)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			parsed[i] = v
		}
		if err := s.ctrl.RegMaskWrite(bar, parsed[0], parsed[1], parsed[2]); err != nil {
			regError(w, err)
			return
		}
	}
}

func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, regsHex(s.ctrl.RegReadAll()))
	}
}

func (s *ApiServer) handleRegSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regs, err := s.ctrl.RegSnapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, regsHex(regs))
	}
}

func (s *ApiServer) handleBringup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling bring-up request")
		regs, err := s.ctrl.Configure()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, regsHex(regs))
	}
}

func (s *ApiServer) handleDmaStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := s.ctrl.DmaStatus()
		writeJSON(w, http.StatusOK, &DmaStatus{Status: status.String(), Value: uint32(status)})
	}
}

// resultCode maps the outcome of a transfer to the HTTP status
func resultCode(result spec.Result) int {
	switch result {
	case spec.ResultCompleted:
		return http.StatusOK
	case spec.ResultRefused:
		return http.StatusConflict
	case spec.ResultTimedOut:
		return http.StatusGatewayTimeout
	case spec.ResultAborted:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeResult(w http.ResponseWriter, result spec.Result, data []uint32, err error) {
	resp := &DmaResult{Result: result.String(), Data: data}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, resultCode(result), resp)
}

func (s *ApiServer) handleDmaWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &DmaWrite{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := ParseHex(req.Offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := checkLength(len(req.Data)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling DMA write request: offset: 0x%x words: %d", offset, len(req.Data))
		result, err := s.ctrl.DmaWrite(r.Context(), offset, req.Data)
		writeResult(w, result, nil, err)
	}
}

func (s *ApiServer) handleDmaRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &DmaRead{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := ParseHex(req.Offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := checkLength(req.Words); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling DMA read request: offset: 0x%x words: %d", offset, req.Words)
		data, result, err := s.ctrl.DmaRead(r.Context(), offset, req.Words)
		writeResult(w, result, data, err)
	}
}

func (s *ApiServer) handleDmaHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := 0
		if str := r.URL.Query().Get("n"); str != "" {
			v, err := strconv.Atoi(str)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			n = v
		}
		recs, err := s.ctrl.DmaHistory(n)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}
