package main

import "testing"

func TestDefaultAPIURL(t *testing.T) {
	cases := map[string]string{
		"":               "http://localhost:8081",
		":9000":          "http://localhost:9000",
		"0.0.0.0:8081":   "http://localhost:8081",
		"127.0.0.1:8081": "http://127.0.0.1:8081",
	}
	for in, want := range cases {
		if got := defaultAPIURL(in); got != want {
			t.Fatalf("defaultAPIURL(%q) = %q, want %q", in, got, want)
		}
	}
}
