// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage persists bundles as opaque buffers together with their forwarding state.
package storage

import (
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/timshannon/badgerhold"
)

const (
	dirBadger string = "db"
	dirBundle string = "bndl"
)

// Store implements a storage for bundles together with meta data.
type Store struct {
	bh *badgerhold.Store

	// mutex serializes read-modify-write cycles on BundleItems.
	mutex sync.Mutex

	badgerDir string
	bundleDir string
}

// NewStore creates a new Store or opens an existing Store from the given path.
func NewStore(dir string) (s *Store, err error) {
	badgerDir := path.Join(dir, dirBadger)
	bundleDir := path.Join(dir, dirBundle)

	opts := badgerhold.DefaultOptions
	opts.Dir = badgerDir
	opts.ValueDir = badgerDir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	if dirErr := os.MkdirAll(badgerDir, 0700); dirErr != nil {
		err = dirErr
		return
	}
	if dirErr := os.MkdirAll(bundleDir, 0700); dirErr != nil {
		err = dirErr
		return
	}

	if bh, bhErr := badgerhold.Open(opts); bhErr != nil {
		err = bhErr
	} else {
		s = &Store{
			bh: bh,

			badgerDir: badgerDir,
			bundleDir: bundleDir,
		}
	}
	return
}

// Close the Store. It must not be used afterwards.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Push a new or received bundle to the Store. Pushing known data is a no-op and returns the known BundleItem.
func (s *Store) Push(data []byte, lifetime time.Duration) (BundleItem, error) {
	if len(data) == 0 {
		return BundleItem{}, fmt.Errorf("refusing to store an empty bundle")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	bi := newBundleItem(data, lifetime, s.bundleDir)

	if known, err := s.Query(bi.Id); err == nil {
		log.WithField("bundle", bi.Id).Debug("Store already knows bundle")
		return known, nil
	}

	log.WithFields(log.Fields{
		"bundle": bi.Id,
		"size":   bi.Size,
	}).Info("Bundle is unknown, inserting BundleItem")

	if err := bi.storeData(data); err != nil {
		return BundleItem{}, err
	}
	if err := s.bh.Insert(bi.Id, bi); err != nil {
		_ = bi.deleteData()
		return BundleItem{}, err
	}
	return bi, nil
}

// Update an existing BundleItem.
func (s *Store) Update(bi BundleItem) error {
	log.WithField("bundle", bi.Id).Debug("Store updates BundleItem")

	return s.bh.Update(bi.Id, bi)
}

// MarkSent records that a bundle was sent to a peer's endpoint ID and clears its pending flag.
func (s *Store) MarkSent(id, eid string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	bi, err := s.Query(id)
	if err != nil {
		return err
	}

	if bi.WasSentTo(eid) && !bi.Pending {
		return nil
	}
	if !bi.WasSentTo(eid) {
		bi.SentTo = append(bi.SentTo, eid)
	}
	bi.Pending = false

	return s.Update(bi)
}

// Delete a BundleItem and its data.
func (s *Store) Delete(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	bi, err := s.Query(id)
	if err != nil {
		return nil
	}

	log.WithField("bundle", id).Info("Store deletes BundleItem")

	if err := bi.deleteData(); err != nil {
		log.WithFields(log.Fields{
			"bundle": id,
			"file":   bi.Filename,
			"error":  err,
		}).Warn("Failed to delete bundle data")
	}

	return s.bh.Delete(bi.Id, BundleItem{})
}

// DeleteExpired removes all expired bundles and returns their amount.
func (s *Store) DeleteExpired() (deleted int) {
	var bis []BundleItem
	if err := s.bh.Find(&bis, badgerhold.Where("Expires").Lt(time.Now())); err != nil {
		log.WithError(err).Warn("Failed to get expired bundles")
		return
	}

	for _, bi := range bis {
		logger := log.WithField("bundle", bi.Id)
		if err := s.Delete(bi.Id); err != nil {
			logger.WithError(err).Warn("Failed to delete expired bundle")
		} else {
			logger.Info("Deleted expired bundle")
			deleted++
		}
	}
	return
}

// Query fetches the BundleItem for the requested identifier.
func (s *Store) Query(id string) (bi BundleItem, err error) {
	err = s.bh.Get(id, &bi)
	return
}

// QueryPending fetches all bundles which were not sent to any peer yet.
func (s *Store) QueryPending() (bis []BundleItem, err error) {
	err = s.bh.Find(&bis, badgerhold.Where("Pending").Eq(true))
	return
}

// All fetches every stored BundleItem.
func (s *Store) All() (bis []BundleItem, err error) {
	err = s.bh.Find(&bis, nil)
	return
}

// KnowsBundle checks if such a bundle is known.
func (s *Store) KnowsBundle(id string) bool {
	_, err := s.Query(id)
	return err != badgerhold.ErrNotFound
}
