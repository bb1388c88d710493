package main

import (
	"testing"
	"time"
)

func TestStreamURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://127.0.0.1:8080", "ws://127.0.0.1:8080/v1/stream"},
		{"https://voice.example.com", "wss://voice.example.com/v1/stream"},
		{"http://host:8080/prefix/", "ws://host:8080/prefix/v1/stream"},
	}
	for _, tc := range cases {
		got, err := streamURL(tc.base)
		if err != nil {
			t.Fatalf("streamURL(%q): %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("streamURL(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}

	if _, err := streamURL("ftp://host"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestPercentile(t *testing.T) {
	values := []time.Duration{
		40 * time.Millisecond,
		10 * time.Millisecond,
		30 * time.Millisecond,
		20 * time.Millisecond,
	}
	if got := percentile(values, 0.50); got != 20*time.Millisecond {
		t.Fatalf("p50 = %v", got)
	}
	if got := percentile(values, 0.95); got != 40*time.Millisecond {
		t.Fatalf("p95 = %v", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Fatalf("empty percentile = %v", got)
	}
}
