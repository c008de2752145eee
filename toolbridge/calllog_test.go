/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolbridge

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCallLogAcrossAttempts(t *testing.T) {
	log := NewCallLog()
	b := New(context.Background(), NewStaticRegistry(echoTool("search"), echoTool("fetch")), log)

	// First attempt.
	b.CallTool("search", "{}")
	b.CallTool("fetch", "{}")
	if diff := cmp.Diff([]string{"search", "fetch"}, log.Entries()); diff != "" {
		t.Errorf("first attempt trace mismatch (-want +got):\n%s", diff)
	}

	// Second attempt reuses the bridge with a clean log.
	log.Reset()
	b.CallTool("fetch", "{}")

	if diff := cmp.Diff([]string{"fetch"}, log.Entries()); diff != "" {
		t.Errorf("second attempt trace mismatch (-want +got):\n%s", diff)
	}
	if got := log.Len(); got != 1 {
		t.Errorf("Len(): got = %d, wanted = 1", got)
	}
}

func TestCallLogEntriesIsACopy(t *testing.T) {
	log := NewCallLog()
	log.AppendToolCall("search")

	entries := log.Entries()
	log.Reset()

	if diff := cmp.Diff([]string{"search"}, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}
