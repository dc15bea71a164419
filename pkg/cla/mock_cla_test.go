// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"fmt"
	"sync"
)

// submission is one recorded ScheduledSubmission call.
type submission struct {
	dest  string
	ready [][]byte
}

// mockAgent mocks a ConvergenceLayerAgent where all fields are directly editable.
type mockAgent struct {
	name string
	port uint16

	// setupErr is returned by Setup, setups counts its calls.
	setupErr error
	setups   int

	handler BundleHandler

	closeErr error
	closed   bool
}

func (m *mockAgent) Setup(handler BundleHandler) error {
	m.setups++
	m.handler = handler
	return m.setupErr
}

func (m *mockAgent) Port() uint16 { return m.port }

func (m *mockAgent) Name() string { return m.name }

func (m *mockAgent) ScheduledSubmission(dest string, ready [][]byte) bool {
	return mockSubmissions.record(dest, ready)
}

func (m *mockAgent) Close() error {
	m.closed = true
	return m.closeErr
}

func (m *mockAgent) String() string { return fmt.Sprintf("mock(%s:%d)", m.name, m.port) }

// mockRecorder collects the submissions of all "mock" agents created by the registry.
type mockRecorder struct {
	sync.Mutex
	submissions []submission
	created     int
	result      bool
}

func (r *mockRecorder) record(dest string, ready [][]byte) bool {
	r.Lock()
	defer r.Unlock()

	r.submissions = append(r.submissions, submission{dest: dest, ready: ready})
	return r.result
}

func (r *mockRecorder) reset(result bool) {
	r.Lock()
	defer r.Unlock()

	r.submissions = nil
	r.created = 0
	r.result = result
}

func (r *mockRecorder) snapshot() (subs []submission, created int) {
	r.Lock()
	defer r.Unlock()

	return append([]submission(nil), r.submissions...), r.created
}

var mockSubmissions = &mockRecorder{result: true}

func init() {
	Register("mock", func(port uint16) ConvergenceLayerAgent {
		mockSubmissions.Lock()
		mockSubmissions.created++
		mockSubmissions.Unlock()

		if port == 0 {
			port = 4556
		}
		return &mockAgent{name: "mock", port: port}
	})
}
