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

package config

import "time"

const (
	ConfigDir = ".go-spec"
	ConfigFile = "config"
	DBFile = "state.db"
	DefaultCard = 0
	DefaultLogLevel = "info"
	DefaultIRQTimeout = 2 * time.Second
	// GN412X needs time to settle after the interrupt status clear
	DefaultSettleDelay = 200 * time.Microsecond
	DefaultApiAddress = "127.0.0.1"
	DefaultApiPort = 8010
	DefaultMetricsPath = "/metrics"
)
