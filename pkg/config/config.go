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

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

type ApiConfig struct {
	Address string `yaml:"address,omitempty"`
	Port int `yaml:"port,omitempty"`
}

type Config struct {
	// Card is the index of the SPEC card in the system
	Card uint `yaml:"card"`
	// Simulate replaces the kernel driver with the in-process card model
	Simulate bool `yaml:"simulate"`
	LogLevel string `yaml:"log_level,omitempty"`
	DBPath string `yaml:"db_path,omitempty"`
	// IRQTimeout bounds the wait for the DMA completion interrupt
	IRQTimeout time.Duration `yaml:"irq_timeout,omitempty"`
	SettleDelay time.Duration `yaml:"settle_delay,omitempty"`
	MetricsPath string `yaml:"metrics_path,omitempty"`
	*ApiConfig `yaml:"api,omitempty"`
	filepath string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file over the defaults. A missing file is not an error.
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Path returns the path of the config file
func (c *Config) Path() string {
	return c.filepath
}

// SetPath changes the file used by Load and Persist
func (c *Config) SetPath(path string) {
	c.filepath = path
}

// ApiAddr returns host:port the control server binds to
func (c *Config) ApiAddr() string {
	return fmt.Sprintf("%s:%d", c.ApiConfig.Address, c.ApiConfig.Port)
}

func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return home
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(homeDir(), ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		Card: DefaultCard,
		LogLevel: DefaultLogLevel,
		DBPath: DefaultDBPath(),
		IRQTimeout: DefaultIRQTimeout,
		SettleDelay: DefaultSettleDelay,
		MetricsPath: DefaultMetricsPath,
		ApiConfig: &ApiConfig{
			Address: DefaultApiAddress,
			Port: DefaultApiPort,
		},
		filepath: DefaultConfigPath(),
	}
}
