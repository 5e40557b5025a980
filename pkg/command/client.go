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
	"fmt"
	"net/http"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-spec/pkg/command/ifc"
	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/spec"
	"jinr.ru/greenlab/go-spec/pkg/srv/control"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

var _ ifc.ApiClient = &ApiClient{}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.ApiAddr()),
	}
}

func (c *ApiClient) url(format string, v ...interface{}) string {
	return c.ApiPrefix + fmt.Sprintf(format, v...)
}

func checkStatus(r *req.Resp) error {
	if r.Response().StatusCode != http.StatusOK {
		return ErrApi{Status: r.Response().Status, Body: r.String()}
	}
	return nil
}

// RegRead sends request to get the value of a register of BAR bar
func (c *ApiClient) RegRead(bar int, addr string) (string, error) {
	r, err := req.Get(c.url("/reg/r/%d/%s", bar, addr))
	if err != nil {
		return "", err
	}
	if err := checkStatus(r); err != nil {
		return "", err
	}
	reg := &control.RegHex{}
	if err := r.ToJSON(reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegWrite sends request to write the value to a register of BAR bar
func (c *ApiClient) RegWrite(bar int, addr, value string) error {
	reg := &control.RegHex{
		Bar:   bar,
		Addr:  addr,
		Value: value,
	}
	r, err := req.Post(c.url("/reg/w/%d", bar), req.BodyJSON(reg))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// RegMaskWrite sends request to clear mask bits of a register and set value bits
func (c *ApiClient) RegMaskWrite(bar int, addr, mask, value string) error {
	reg := &control.RegMaskHex{
		Addr:  addr,
		Mask:  mask,
		Value: value,
	}
	r, err := req.Post(c.url("/reg/m/%d", bar), req.BodyJSON(reg))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

func (c *ApiClient) regList(r *req.Resp, err error) ([]*control.RegHex, error) {
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	var regs []*control.RegHex
	if err := r.ToJSON(&regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// RegReadAll reads the bridge registers
func (c *ApiClient) RegReadAll() ([]*control.RegHex, error) {
	return c.regList(req.Get(c.url("/reg/all")))
}

// RegSnapshot returns the bridge registers stored after the last bring-up
func (c *ApiClient) RegSnapshot() ([]*control.RegHex, error) {
	return c.regList(req.Get(c.url("/reg/snapshot")))
}

// Bringup runs the bring-up sequence and returns the resulting bridge registers
func (c *ApiClient) Bringup() ([]*control.RegHex, error) {
	return c.regList(req.Post(c.url("/bringup")))
}

func (c *ApiClient) DmaStatus() (*control.DmaStatus, error) {
	r, err := req.Get(c.url("/dma/status"))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	status := &control.DmaStatus{}
	if err := r.ToJSON(status); err != nil {
		return nil, err
	}
	return status, nil
}

// dmaResult decodes the transfer outcome. The result is returned along with
// the error when the transfer did not complete.
func dmaResult(r *req.Resp) (*control.DmaResult, error) {
	result := &control.DmaResult{}
	if err := r.ToJSON(result); err != nil {
		if serr := checkStatus(r); serr != nil {
			return nil, serr
		}
		return nil, err
	}
	if r.Response().StatusCode != http.StatusOK {
		return result, ErrApi{Status: r.Response().Status, Body: result.Error}
	}
	return result, nil
}

func (c *ApiClient) DmaWrite(offset string, data []uint32) (*control.DmaResult, error) {
	r, err := req.Post(c.url("/dma/w"), req.BodyJSON(&control.DmaWrite{Offset: offset, Data: data}))
	if err != nil {
		return nil, err
	}
	return dmaResult(r)
}

func (c *ApiClient) DmaRead(offset string, words int) (*control.DmaResult, error) {
	r, err := req.Post(c.url("/dma/r"), req.BodyJSON(&control.DmaRead{Offset: offset, Words: words}))
	if err != nil {
		return nil, err
	}
	return dmaResult(r)
}

// DmaHistory returns up to n latest transfers, all of them if n is 0
func (c *ApiClient) DmaHistory(n int) ([]spec.TransferRecord, error) {
	r, err := req.Get(c.url("/dma/history"), req.Param{"n": n})
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	var recs []spec.TransferRecord
	if err := r.ToJSON(&recs); err != nil {
		return nil, err
	}
	return recs, nil
}
