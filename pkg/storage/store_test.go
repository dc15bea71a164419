// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"bytes"
	"os"
	"reflect"
	"testing"
	"time"
)

func TestStore(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	data := []byte("hello world")

	bi, err := store.Push(data, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if bi.Id != BundleId(data) {
		t.Fatalf("BundleItem has id %s", bi.Id)
	}

	if loaded, err := bi.Load(); err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(loaded, data) {
		t.Fatalf("Bundle changed after loading: %q", loaded)
	}

	if bip, err := store.QueryPending(); err != nil {
		t.Fatal(err)
	} else if l := len(bip); l != 1 {
		t.Fatalf("Found %d pending BundleItems, instead of 1", l)
	}

	if err := store.MarkSent(bi.Id, "dtn://peer/"); err != nil {
		t.Fatal(err)
	}

	if bip, err := store.QueryPending(); err != nil {
		t.Fatal(err)
	} else if l := len(bip); l != 0 {
		t.Fatalf("Found %d pending BundleItems, instead of 0", l)
	}

	if bi2, err := store.Query(bi.Id); err != nil {
		t.Fatal(err)
	} else if !reflect.DeepEqual(bi2.SentTo, []string{"dtn://peer/"}) {
		t.Fatalf("SentTo is %v", bi2.SentTo)
	} else if !bi2.WasSentTo("dtn://peer/") || bi2.WasSentTo("dtn://other/") {
		t.Fatal("WasSentTo mismatches SentTo")
	}

	if err := store.Delete(bi.Id); err != nil {
		t.Fatal(err)
	}
	if store.KnowsBundle(bi.Id) {
		t.Fatal("Store knows deleted bundle")
	}
	if _, err := os.Stat(bi.Filename); !os.IsNotExist(err) {
		t.Fatalf("Bundle file still exists: %v", err)
	}
}

func TestStorePushIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	data := []byte("hello world")

	bi, err := store.Push(data, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.MarkSent(bi.Id, "dtn://peer/"); err != nil {
		t.Fatal(err)
	}

	bi2, err := store.Push(data, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(bi2.SentTo) != 1 {
		t.Fatalf("second Push reset the forwarding state: %v", bi2.SentTo)
	}

	if bis, err := store.All(); err != nil {
		t.Fatal(err)
	} else if l := len(bis); l != 1 {
		t.Fatalf("Store holds %d BundleItems, instead of 1", l)
	}

	if _, err := store.Push(nil, time.Hour); err == nil {
		t.Fatal("Pushing empty data succeeded")
	}
}

func TestStoreDeleteExpired(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Push([]byte("expired"), -time.Minute); err != nil {
		t.Fatal(err)
	}
	fresh, err := store.Push([]byte("fresh"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if deleted := store.DeleteExpired(); deleted != 1 {
		t.Fatalf("DeleteExpired removed %d bundles, instead of 1", deleted)
	}

	bis, err := store.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(bis) != 1 || bis[0].Id != fresh.Id {
		t.Fatalf("Store holds %v after cleanup", bis)
	}
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	bi, err := store.Push([]byte("persistent"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	if !store.KnowsBundle(bi.Id) {
		t.Fatal("reopened Store lost its bundle")
	}
}
