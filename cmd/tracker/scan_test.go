package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/connector"
)

func TestScanExitCode(t *testing.T) {
	base := errors.New("boom")

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"clean cycle", nil, exitSuccess},
		{"transient mailbox error", connector.NewTransient("dial", base), exitSuccess},
		{"wrapped transient", fmt.Errorf("host imap.test: %w", connector.NewTransient("fetch", base)), exitSuccess},
		{"fatal mailbox error", connector.NewFatal("login", base), exitRuntimeError},
		{"unclassified error", base, exitRuntimeError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := scanExitCode(tc.err); got != tc.want {
				t.Fatalf("scanExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
