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

// Package cmd holds what the command line tools share: opening the card
// selected by the config and retrying refused transfers.
package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"jinr.ru/greenlab/go-spec/pkg/config"
	"jinr.ru/greenlab/go-spec/pkg/driver"
	"jinr.ru/greenlab/go-spec/pkg/driver/pcidriver"
	"jinr.ru/greenlab/go-spec/pkg/driver/sim"
	"jinr.ru/greenlab/go-spec/pkg/log"
	"jinr.ru/greenlab/go-spec/pkg/spec"
)

// NewDriver returns the kernel driver backend or the simulated card
func NewDriver(cfg *config.Config) driver.Driver {
	if cfg.Simulate {
		log.Info("Using simulated card")
		return sim.New(sim.WithCards(cfg.Card + 1))
	}
	return pcidriver.New()
}

// OpenController opens and brings up the card selected by cfg
func OpenController(cfg *config.Config, opts ...spec.Option) (*spec.Controller, error) {
	opts = append([]spec.Option{
		spec.WithIRQTimeout(cfg.IRQTimeout),
		spec.WithSettleDelay(cfg.SettleDelay),
	}, opts...)
	return spec.NewController(NewDriver(cfg), cfg.Card, opts...)
}

// Transfer is a DMA transfer that may be run more than once
type Transfer func(ctx context.Context) (spec.Result, error)

// RetryRefused runs transfer again with exponential backoff while the engine
// refuses it, at most retries more times. Any other outcome ends the retries.
func RetryRefused(ctx context.Context, retries uint64, transfer Transfer) (spec.Result, error) {
	var result spec.Result
	var lastErr error
	op := func() error {
		result, lastErr = transfer(ctx)
		var refused spec.ErrTransferRefused
		if errors.As(lastErr, &refused) {
			log.Debug("DMA engine is %s, retrying", refused.Status)
			return lastErr
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(&backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         100 * time.Millisecond,
		MaxElapsedTime:      5 * time.Second,
		Clock:               backoff.SystemClock}, retries), ctx)
	if err := backoff.Retry(op, b); err != nil && lastErr == nil {
		return result, err
	}
	return result, lastErr
}
