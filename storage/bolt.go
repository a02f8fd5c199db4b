/* Copyright 2026 The Cascata Authors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/cascata/cascata/core"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("state")

// Bolt is a core.Store backed by a bbolt file.  Values round-trip
// through JSON, so what comes back is canonical plain data.
type Bolt struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewBolt(filename string) (*Bolt, error) {
	return &Bolt{
		filename: filename,
	}, nil
}

func (s *Bolt) Open() error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

func (s *Bolt) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("Bolt."+format, args...)
	}
}

func (s *Bolt) Get(ctx context.Context, key string) (interface{}, bool, error) {
	s.logf("Get %s", key)
	var (
		v    interface{}
		have bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(bucketName).Get([]byte(key))
		if bs == nil {
			return nil
		}
		have = true
		return json.Unmarshal(bs, &v)
	})
	if err != nil {
		return nil, false, err
	}
	return v, have, nil
}

func (s *Bolt) Set(ctx context.Context, key string, v interface{}) error {
	s.logf("Set %s", key)
	js, err := json.Marshal(&v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), js)
	})
}

var _ core.Store = &Bolt{}
