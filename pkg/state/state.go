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

// Package state keeps the bridge register snapshot taken after bring-up and
// the history of DMA transfers of every card in a bbolt database.
package state

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-spec/pkg/log"
	"jinr.ru/greenlab/go-spec/pkg/spec"
)

const (
	BucketNamePrefix    = "card_"
	DefaultHistoryLimit = 1000
)

var (
	regsBucket      = []byte("regs")
	transfersBucket = []byte("transfers")
)

type State struct {
	DB           *bbolt.DB
	HistoryLimit int
}

var _ spec.Observer = &State{}

func New(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &State{
		DB:           db,
		HistoryLimit: DefaultHistoryLimit,
	}, nil
}

func (s *State) Close() error {
	return s.DB.Close()
}

func bucketName(card uint) []byte {
	return []byte(fmt.Sprintf("%s%d", BucketNamePrefix, card))
}

func uint32ToByte(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// cardBucket returns the nested bucket name of card, creating it if needed
func cardBucket(tx *bbolt.Tx, card uint, name []byte) (*bbolt.Bucket, error) {
	root, err := tx.CreateBucketIfNotExists(bucketName(card))
	if err != nil {
		return nil, err
	}
	return root.CreateBucketIfNotExists(name)
}

func viewBucket(tx *bbolt.Tx, card uint, name []byte) (*bbolt.Bucket, error) {
	root := tx.Bucket(bucketName(card))
	if root == nil {
		return nil, ErrBucketNotFound{Name: string(bucketName(card))}
	}
	b := root.Bucket(name)
	if b == nil {
		return nil, ErrBucketNotFound{Name: fmt.Sprintf("%s/%s", bucketName(card), name)}
	}
	return b, nil
}

// SetRegs replaces the register snapshot of card
func (s *State) SetRegs(card uint, regs []spec.RegValue) error {
	log.Debug("Storing %d registers of card %d", len(regs), card)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketName(card))
		if err != nil {
			return err
		}
		if root.Bucket(regsBucket) != nil {
			if err := root.DeleteBucket(regsBucket); err != nil {
				return err
			}
		}
		b, err := root.CreateBucket(regsBucket)
		if err != nil {
			return err
		}
		for _, reg := range regs {
			data, err := yaml.Marshal(reg)
			if err != nil {
				return err
			}
			if err := b.Put(uint32ToByte(reg.Addr), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *State) GetReg(card uint, addr uint32) (*spec.RegValue, error) {
	reg := &spec.RegValue{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := viewBucket(tx, card, regsBucket)
		if err != nil {
			return err
		}
		data := b.Get(uint32ToByte(addr))
		if data == nil {
			return ErrKeyNotFound{Addr: addr}
		}
		return yaml.Unmarshal(data, reg)
	}); err != nil {
		return nil, err
	}
	return reg, nil
}

// GetRegAll returns the snapshot of card ordered by address
func (s *State) GetRegAll(card uint) ([]spec.RegValue, error) {
	var regs []spec.RegValue
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := viewBucket(tx, card, regsBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, data []byte) error {
			reg := spec.RegValue{}
			if err := yaml.Unmarshal(data, &reg); err != nil {
				return err
			}
			regs = append(regs, reg)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return regs, nil
}

// AddTransfer appends rec to the history of its card and drops the oldest
// records beyond HistoryLimit. It returns the sequence number of rec.
func (s *State) AddTransfer(rec spec.TransferRecord) (uint64, error) {
	var seq uint64
	err := s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := cardBucket(tx, rec.Card, transfersBucket)
		if err != nil {
			return err
		}
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(rec)
		if err != nil {
			return err
		}
		if err := b.Put(uint64ToByte(seq), data); err != nil {
			return err
		}
		if s.HistoryLimit <= 0 {
			return nil
		}
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for len(keys) > s.HistoryLimit {
			if err := b.Delete(keys[0]); err != nil {
				return err
			}
			keys = keys[1:]
		}
		return nil
	})
	return seq, err
}

// History returns up to n latest transfers of card, oldest first.
// n <= 0 returns the whole history.
func (s *State) History(card uint, n int) ([]spec.TransferRecord, error) {
	var recs []spec.TransferRecord
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b, err := viewBucket(tx, card, transfersBucket)
		if err != nil {
			return err
		}
		c := b.Cursor()
		for k, data := c.Last(); k != nil && (n <= 0 || len(recs) < n); k, data = c.Prev() {
			rec := spec.TransferRecord{}
			if err := yaml.Unmarshal(data, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// Configured stores the snapshot taken after bring-up
func (s *State) Configured(card uint, regs []spec.RegValue) {
	if err := s.SetRegs(card, regs); err != nil {
		log.Warning("Failed to store register snapshot of card %d: %s", card, err)
	}
}

// Transferred stores a finished transfer
func (s *State) Transferred(rec spec.TransferRecord) {
	if _, err := s.AddTransfer(rec); err != nil {
		log.Warning("Failed to store transfer record: %s", err)
	}
}
