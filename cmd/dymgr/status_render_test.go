package main

import (
	"fmt"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Backend", statusError, "unreachable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Backend:", "[ERROR] unreachable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Session", statusOK, "Authenticated", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestHumanLabel(t *testing.T) {
	cases := map[string]string{
		"draft":           "Draft",
		"publish_pending": "Publish Pending",
		"":                "-",
		"  ":              "-",
	}
	for in, want := range cases {
		if got := humanLabel(in); got != want {
			t.Fatalf("humanLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderTablePadsRows(t *testing.T) {
	out := renderTable([]string{"ID", "Title"}, [][]string{{"1"}}, []columnAlignment{alignRight})
	if !strings.Contains(out, "ID") || !strings.Contains(out, "Title") {
		t.Fatalf("missing headers: %s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("no headers should render nothing")
	}
}

func TestOperationName(t *testing.T) {
	root := newRootCommand()
	cmd, _, err := root.Find([]string{"videos", "list"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := operationName(cmd); got != "videos.list" {
		t.Fatalf("operationName = %q", got)
	}
	if got := routeFor(cmd); got != "/videos" {
		t.Fatalf("routeFor = %q", got)
	}
}
