// SPDX-FileCopyrightText: 2019, 2020, 2021 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path"
	"time"
)

// BundleItem is the meta data around a stored bundle. The bundle itself is kept as an opaque buffer on the disk.
type BundleItem struct {
	// Id is the hex encoded SHA-256 sum of the bundle's data.
	Id string `badgerhold:"key"`

	Size     int
	Filename string

	Received time.Time
	Expires  time.Time `badgerholdIndex:"Expires"`

	// Pending is true until the bundle was sent to at least one peer.
	Pending bool `badgerholdIndex:"Pending"`

	// SentTo holds the endpoint IDs of all peers which have received this bundle.
	SentTo []string
}

// BundleId calculates the identifier of a bundle's data.
func BundleId(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// newBundleItem creates a new BundleItem for some bundle data.
func newBundleItem(data []byte, lifetime time.Duration, storagePath string) BundleItem {
	id := BundleId(data)
	now := time.Now()

	return BundleItem{
		Id:       id,
		Size:     len(data),
		Filename: path.Join(storagePath, id),
		Received: now,
		Expires:  now.Add(lifetime),
		Pending:  true,
	}
}

// WasSentTo checks if the bundle was already sent to this endpoint.
func (bi BundleItem) WasSentTo(eid string) bool {
	for _, sent := range bi.SentTo {
		if sent == eid {
			return true
		}
	}
	return false
}

// storeData writes the bundle's data to the disk.
func (bi BundleItem) storeData(data []byte) error {
	return os.WriteFile(bi.Filename, data, 0600)
}

// deleteData removes the bundle's data from the disk.
func (bi BundleItem) deleteData() error {
	return os.Remove(bi.Filename)
}

// Load the bundle's data from the disk.
func (bi BundleItem) Load() ([]byte, error) {
	return os.ReadFile(bi.Filename)
}
