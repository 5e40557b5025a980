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
	"errors"
)

var (
	// ErrEmptyChain returned when the buffer has no bytes to describe
	ErrEmptyChain = errors.New("descriptor chain would be empty")
	// ErrChainOverflow returned when the descriptor buffer is too small for the chain
	ErrChainOverflow = errors.New("descriptor buffer too small")
	// ErrOffsetRange returned when the card side range runs past CarrierSpace
	ErrOffsetRange = errors.New("card address range out of carrier space")
)
