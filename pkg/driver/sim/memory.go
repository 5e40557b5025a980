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

package sim

import (
	"jinr.ru/greenlab/go-spec/pkg/driver"
)

type userMemory struct {
	card    *Card
	regions []*region
	entries []driver.SGEntry
	closed  bool
}

func (m *userMemory) SGEntries() []driver.SGEntry {
	return m.entries
}

func (m *userMemory) Sync(dir driver.SyncDirection) error {
	m.card.mu.Lock()
	defer m.card.mu.Unlock()
	if m.closed {
		return driver.ErrNotOpen{What: "sync released user memory"}
	}
	m.card.stats.UserSyncs[dir]++
	return nil
}

func (m *userMemory) Close() error {
	m.card.mu.Lock()
	defer m.card.mu.Unlock()
	if m.closed {
		return driver.ErrNotOpen{What: "user memory released twice"}
	}
	m.closed = true
	for _, r := range m.regions {
		m.card.release(r)
	}
	m.card.stats.UserReleased++
	m.card.stats.releases = append(m.card.stats.releases, "user")
	return nil
}

type kernelMemory struct {
	card   *Card
	region *region
	closed bool
}

func (m *kernelMemory) Buffer() []byte {
	return m.region.buf
}

func (m *kernelMemory) PhysAddr() uint64 {
	return m.region.phys
}

func (m *kernelMemory) Sync(dir driver.SyncDirection) error {
	m.card.mu.Lock()
	defer m.card.mu.Unlock()
	if m.closed {
		return driver.ErrNotOpen{What: "sync released kernel memory"}
	}
	m.card.stats.KernelSyncs[dir]++
	return nil
}

func (m *kernelMemory) Close() error {
	m.card.mu.Lock()
	defer m.card.mu.Unlock()
	if m.closed {
		return driver.ErrNotOpen{What: "kernel memory released twice"}
	}
	m.closed = true
	m.card.release(m.region)
	m.card.stats.KernelReleased++
	m.card.stats.releases = append(m.card.stats.releases, "kernel")
	return nil
}
