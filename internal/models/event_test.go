// Vantage - Event Tracking Client for Go
// Copyright 2026 Vantage Analytics
// SPDX-License-Identifier: MIT
// https://github.com/vantagehq/vantage-go

package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestEventWireFormat(t *testing.T) {
	ev := Event{
		Type:      TypeClick,
		Timestamp: 1700000000000,
		SessionID: "sess-1",
		Selector:  "#save",
	}

	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(out)

	// Field names are the collection API's camelCase contract.
	for _, want := range []string{`"type":"click"`, `"timestamp":1700000000000`, `"sessionId":"sess-1"`, `"selector":"#save"`} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in %s", want, s)
		}
	}
	// Unset optional fields stay off the wire entirely.
	for _, banned := range []string{"message", "properties", "utm", "userId"} {
		if strings.Contains(s, banned) {
			t.Errorf("unexpected %q in %s", banned, s)
		}
	}
}
