// SPDX-FileCopyrightText: 2023 The dtnd Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package all registers every built-in ConvergenceLayerAgent by importing it.
package all

import (
	_ "github.com/dtn7/dtnd/pkg/cla/dummy"
	_ "github.com/dtn7/dtnd/pkg/cla/httpcl"
	_ "github.com/dtn7/dtnd/pkg/cla/mtcp"
	_ "github.com/dtn7/dtnd/pkg/cla/quicl"
	_ "github.com/dtn7/dtnd/pkg/cla/ws"
)
