// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package peers

import (
	"encoding/json"
	"net/netip"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dtn7/dtnd/pkg/bpv7"
	"github.com/dtn7/dtnd/pkg/cla"
	_ "github.com/dtn7/dtnd/pkg/cla/all"
)

func TestTableAddRefresh(t *testing.T) {
	table := NewTable()
	eid := bpv7.MustNewEndpointID("dtn://node2/")

	first := NewDtnPeer(eid, netip.MustParseAddr("10.0.0.5"), Dynamic, []cla.Service{{Scheme: "mtcp", Port: 16161}})
	if !table.Add(first) {
		t.Fatal("first Add did not report a new peer")
	}

	second := NewDtnPeer(eid, netip.MustParseAddr("10.0.0.6"), Dynamic, []cla.Service{{Scheme: "http", Port: 8080}})
	if table.Add(second) {
		t.Fatal("second Add reported a new peer")
	}

	if l := len(table.Peers()); l != 1 {
		t.Fatalf("table has %d peers, expected 1", l)
	}

	peer, ok := table.Get(eid)
	if !ok {
		t.Fatal("peer is missing")
	}
	if peer.Addr != netip.MustParseAddr("10.0.0.6") {
		t.Fatalf("address was not refreshed: %v", peer.Addr)
	}
	if expected := map[string]uint16{"http": 8080}; !reflect.DeepEqual(peer.ClaList, expected) {
		t.Fatalf("CLA list is %v, expected %v", peer.ClaList, expected)
	}
}

func TestTableStaysStatic(t *testing.T) {
	table := NewTable()
	eid := bpv7.MustNewEndpointID("dtn://static/")

	table.Add(NewDtnPeer(eid, netip.MustParseAddr("10.0.0.5"), Static, nil))
	table.Add(NewDtnPeer(eid, netip.MustParseAddr("10.0.0.5"), Dynamic, []cla.Service{{Scheme: "mtcp", Port: 16162}}))

	if peer, _ := table.Get(eid); peer.Type != Static {
		t.Fatalf("static peer became %v", peer.Type)
	}
}

func TestTableEvictStale(t *testing.T) {
	table := NewTable()
	old := time.Now().Add(-time.Hour)

	staticEid := bpv7.MustNewEndpointID("dtn://static/")
	staleEid := bpv7.MustNewEndpointID("dtn://stale/")
	freshEid := bpv7.MustNewEndpointID("dtn://fresh/")

	table.Add(DtnPeer{Eid: staticEid, Type: Static, LastContact: old})
	table.Add(DtnPeer{Eid: staleEid, Type: Dynamic, LastContact: old})
	table.Add(DtnPeer{Eid: freshEid, Type: Dynamic})

	evicted := table.EvictStale(time.Minute)
	if len(evicted) != 1 || evicted[0].String() != staleEid.String() {
		t.Fatalf("evicted %v, expected only %v", evicted, staleEid)
	}

	if _, ok := table.Get(staticEid); !ok {
		t.Fatal("static peer was evicted")
	}
	if _, ok := table.Get(freshEid); !ok {
		t.Fatal("fresh peer was evicted")
	}
	if _, ok := table.Get(staleEid); ok {
		t.Fatal("stale peer is still present")
	}
}

func TestTableConcurrent(t *testing.T) {
	const workers = 16

	table := NewTable()
	eid := bpv7.MustNewEndpointID("dtn://node2/")

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			table.Add(NewDtnPeer(eid, netip.MustParseAddr("10.0.0.5"), Dynamic, []cla.Service{{Scheme: "mtcp", Port: uint16(i)}}))
			_ = table.Peers()
		}(i)
	}
	wg.Wait()

	if l := len(table.Peers()); l != 1 {
		t.Fatalf("table has %d peers, expected 1", l)
	}
}

func TestDtnPeerSenders(t *testing.T) {
	peer := NewDtnPeer(
		bpv7.MustNewEndpointID("dtn://node2/"),
		netip.MustParseAddr("10.0.0.5"),
		Dynamic,
		[]cla.Service{{Scheme: "mtcp", Port: 16161}, {Scheme: "http", Port: 8080}, {Scheme: "bogus", Port: 1}, {Scheme: "dummy", Port: 0}})

	expected := []cla.ClaSender{
		{Remote: netip.MustParseAddr("10.0.0.5"), Agent: "dummy"},
		{Remote: netip.MustParseAddr("10.0.0.5"), Port: 8080, Agent: "http"},
		{Remote: netip.MustParseAddr("10.0.0.5"), Port: 16161, Agent: "mtcp"},
	}
	if senders := peer.Senders(); !reflect.DeepEqual(senders, expected) {
		t.Fatalf("senders are %v, expected %v", senders, expected)
	}
}

func TestDtnPeerSendersWithoutAddress(t *testing.T) {
	peer := NewDtnPeer(bpv7.MustNewEndpointID("dtn://node2/"), netip.Addr{}, Static,
		[]cla.Service{{Scheme: "mtcp", Port: 16161}})

	if senders := peer.Senders(); len(senders) != 0 {
		t.Fatalf("peer without an address has senders %v", senders)
	}
}

func TestDtnPeerDuplicateScheme(t *testing.T) {
	peer := NewDtnPeer(bpv7.DtnNone(), netip.MustParseAddr("10.0.0.5"), Dynamic,
		[]cla.Service{{Scheme: "mtcp", Port: 1}, {Scheme: "mtcp", Port: 2}})

	if port := peer.ClaList["mtcp"]; port != 2 {
		t.Fatalf("duplicate scheme resulted in port %d", port)
	}
}

func TestDtnPeerJson(t *testing.T) {
	peer := NewDtnPeer(bpv7.MustNewEndpointID("dtn://node2/"), netip.MustParseAddr("10.0.0.5"), Dynamic,
		[]cla.Service{{Scheme: "mtcp", Port: 16161}})

	data, err := json.Marshal(peer)
	if err != nil {
		t.Fatal(err)
	}

	for _, part := range []string{`"eid":"dtn://node2/"`, `"addr":"10.0.0.5"`, `"type":"dynamic"`, `"mtcp":16161`} {
		if !strings.Contains(string(data), part) {
			t.Fatalf("JSON %s misses %s", data, part)
		}
	}
}
