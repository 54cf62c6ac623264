// SPDX-License-Identifier: MIT

package kv

// Well-known keys shared between the sync orchestrator, the read API and
// health checks.
const (
	KeyAMVList     = "amv:list"
	KeyAMVLastSync = "amv:lastSync"
)
