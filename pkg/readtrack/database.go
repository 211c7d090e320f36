/*
 Copyright (C) 2022-2025, The readtrack Go Library Authors

 This file is part of readtrack: A Go Library for Daily Reading Plans.

 This library is free software; you can redistribute it and/or
 modify it under the terms of the GNU Lesser General Public
 License as published by the Free Software Foundation; either
 version 2.1 of the License, or any later version.

 This library is distributed in the hope that it will be useful,
 but WITHOUT ANY WARRANTY; without even the implied warranty of
 MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
 See the GNU Lesser General Public License for more details.

 A copy of the GNU Lesser General Public License is provided by this
 library under LICENSE.md. To see more details about the authors and
 contributors, please see AUTHORS.md. If absent, Both of which can be
 found within the GitHub repository:
          https://github.com/justincpresley/readtrack
*/

package readtrack

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

type Database interface {
	Get(key []byte) (val []byte)
	Set(key []byte, value []byte) error
	Remove(key []byte) error
	ForEach(fn func(key, value []byte) error) error
	Close() error
}

type BoltDB struct {
	handle *bolt.DB
	bucket []byte
}

// NewBoltDB opens the store at path and holds its file lock until Close.
// It gives up with bolt.ErrTimeout when another process keeps the lock
// for longer than timeout; zero waits forever.
func NewBoltDB(path string, bucket []byte, timeout time.Duration) (*BoltDB, error) {
	path = resolvePath(path)
	if err := ensureDirectory(path); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltDB{handle: db, bucket: bucket}, nil
}

// Get returns a copy of the stored value, or nil if key is absent.
func (fs *BoltDB) Get(key []byte) (val []byte) {
	fs.handle.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(fs.bucket).Get(key); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	return val
}

func (fs *BoltDB) Set(key []byte, value []byte) error {
	return fs.handle.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(fs.bucket).Put(key, value)
	})
}

func (fs *BoltDB) Remove(key []byte) error {
	return fs.handle.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(fs.bucket).Delete(key)
	})
}

// ForEach visits entries in key order. The slices are only valid
// during the call.
func (fs *BoltDB) ForEach(fn func(key, value []byte) error) error {
	return fs.handle.View(func(tx *bolt.Tx) error {
		return tx.Bucket(fs.bucket).ForEach(fn)
	})
}

func (fs *BoltDB) Close() error {
	return fs.handle.Close()
}

// TransientBoltDB opens the bolt store for each call and closes it
// again, so long running readers do not keep other processes out.
type TransientBoltDB struct {
	path    string
	bucket  []byte
	timeout time.Duration
}

func NewTransientBoltDB(path string, bucket []byte, timeout time.Duration) (*TransientBoltDB, error) {
	fs := &TransientBoltDB{path: resolvePath(path), bucket: bucket, timeout: timeout}
	if err := fs.with(func(*BoltDB) error { return nil }); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *TransientBoltDB) with(fn func(db *BoltDB) error) error {
	db, err := NewBoltDB(fs.path, fs.bucket, fs.timeout)
	if err != nil {
		return err
	}
	if err = fn(db); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

// Get returns nil when key is absent or the store cannot be opened.
func (fs *TransientBoltDB) Get(key []byte) (val []byte) {
	fs.with(func(db *BoltDB) error {
		val = db.Get(key)
		return nil
	})
	return val
}

func (fs *TransientBoltDB) Set(key []byte, value []byte) error {
	return fs.with(func(db *BoltDB) error { return db.Set(key, value) })
}

func (fs *TransientBoltDB) Remove(key []byte) error {
	return fs.with(func(db *BoltDB) error { return db.Remove(key) })
}

func (fs *TransientBoltDB) ForEach(fn func(key, value []byte) error) error {
	return fs.with(func(db *BoltDB) error { return db.ForEach(fn) })
}

func (fs *TransientBoltDB) Close() error { return nil }

func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		return os.MkdirAll(dir, os.ModePerm)
	}
	return nil
}

func resolvePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if usr, err := user.Current(); err == nil {
			path = filepath.Join(usr.HomeDir, strings.TrimPrefix(path[1:], "/"))
		}
	} else if strings.HasPrefix(path, "./") {
		path, _ = filepath.Abs(path)
	}
	return path
}
