// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package mtcp

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dtn7/dtnd/internal/testutil"
	"github.com/dtn7/dtnd/pkg/cla"
)

func TestMTCPServerClient(t *testing.T) {
	const (
		clients  = 10
		packages = 25
	)

	port := testutil.RandomTCPPort(t)
	payload := []byte("hello world!")

	var (
		mutex    sync.Mutex
		received int
		errCh    = make(chan error, clients*packages)
	)

	serv := NewAgent(port)
	err := serv.Setup(func(rb cla.ReceivedBundle) {
		mutex.Lock()
		received++
		mutex.Unlock()

		if rb.Agent != Name {
			errCh <- fmt.Errorf("wrong agent name %q", rb.Agent)
		} else if !bytes.Equal(rb.Data, payload) {
			errCh <- fmt.Errorf("received bundle differs: %x", rb.Data)
		} else {
			errCh <- nil
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = serv.Close() }()

	if err := serv.Setup(func(cla.ReceivedBundle) {}); err == nil {
		t.Fatal("Second Setup succeeded")
	}

	var wg sync.WaitGroup
	wg.Add(clients)
	for c := 0; c < clients; c++ {
		go func() {
			defer wg.Done()

			ready := make([][]byte, packages)
			for i := range ready {
				ready[i] = payload
			}

			if !NewAgent(0).ScheduledSubmission(fmt.Sprintf("127.0.0.1:%d", port), ready) {
				errCh <- fmt.Errorf("submission failed")
			}
		}()
	}
	wg.Wait()

	for i := 0; i < clients*packages; i++ {
		select {
		case err := <-errCh:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("received only %d bundles", i)
		}
	}

	mutex.Lock()
	defer mutex.Unlock()
	if received != clients*packages {
		t.Fatalf("received %d bundles, expected %d", received, clients*packages)
	}
}

func TestMTCPKeepalive(t *testing.T) {
	port := testutil.RandomTCPPort(t)

	recCh := make(chan []byte, 4)
	serv := NewAgent(port)
	if err := serv.Setup(func(rb cla.ReceivedBundle) { recCh <- rb.Data }); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = serv.Close() }()

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	// Two keepalives, followed by a three byte long byte string.
	if _, err := conn.Write([]byte{0x40, 0x40, 0x43, 0x01, 0x02, 0x03}); err != nil {
		t.Fatal(err)
	}

	select {
	case data := <-recCh:
		if !bytes.Equal(data, []byte{0x01, 0x02, 0x03}) {
			t.Fatalf("received %x", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no bundle was received")
	}

	select {
	case data := <-recCh:
		t.Fatalf("keepalive was passed as bundle %x", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMTCPSubmissionFails(t *testing.T) {
	port := testutil.RandomTCPPort(t)

	if NewAgent(0).ScheduledSubmission(fmt.Sprintf("127.0.0.1:%d", port), [][]byte{[]byte("x")}) {
		t.Fatal("submission to a closed port succeeded")
	}
}

func TestMTCPEmptyBundle(t *testing.T) {
	port := testutil.RandomTCPPort(t)

	recCh := make(chan []byte, 4)
	serv := NewAgent(port)
	if err := serv.Setup(func(rb cla.ReceivedBundle) { recCh <- rb.Data }); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = serv.Close() }()

	dest := fmt.Sprintf("127.0.0.1:%d", port)
	if NewAgent(0).ScheduledSubmission(dest, [][]byte{[]byte("x"), {}}) {
		t.Fatal("submission of an empty bundle succeeded")
	}

	select {
	case data := <-recCh:
		t.Fatalf("refused submission delivered %x", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMTCPAgent(t *testing.T) {
	if a := NewAgent(0); a.Port() != DefaultPort || a.Name() != "mtcp" {
		t.Fatalf("unexpected default agent %v", a)
	}
	if err := NewAgent(0).Close(); err != nil {
		t.Fatalf("closing an unset agent errored: %v", err)
	}

	agent, err := cla.NewAgent("mtcp:4242")
	if err != nil {
		t.Fatal(err)
	}
	if agent.Name() != Name || agent.Port() != 4242 {
		t.Fatalf("registry created %v", agent)
	}
}
