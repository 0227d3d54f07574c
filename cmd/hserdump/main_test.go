package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreyvit/hser"
	"github.com/andreyvit/hser/store"
)

type icon struct {
	id string
}

func (i *icon) AssetID() string { return i.id }

type spawner struct {
	Count int32
	Label string
	Icon  *icon
}

func writeStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.db")
	s, err := store.Open(path, store.Options{IsTesting: true})
	if err != nil {
		t.Fatal(err)
	}
	for name, v := range map[string]*spawner{
		"wave1": {Count: 3, Label: "ok", Icon: &icon{"tex:wave"}},
		"wave2": {Count: 5},
	} {
		if err := s.Save(name, v, hser.VisibilityPublic); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func runOutput(t *testing.T, args ...string) string {
	t.Helper()
	var buf strings.Builder
	if err := run(args, &buf); err != nil {
		t.Fatalf("run(%q) failed: %v", args, err)
	}
	return buf.String()
}

func TestRun_names(t *testing.T) {
	path := writeStore(t)
	if a, e := runOutput(t, "--db", path, "--names"), "wave1\nwave2\n"; a != e {
		t.Fatalf("output = %q, wanted %q", a, e)
	}
}

func TestRun_dump(t *testing.T) {
	path := writeStore(t)
	hser.RegisterType[spawner]()

	s := runOutput(t, "--db", path, "--payloads", "--external", "wave1")
	for _, want := range []string{
		"wave1\n",
		" Count = 03000000",
		" Label = 6f6b",
		"external[0] = tex:wave",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("** output does not contain %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "wave2") {
		t.Errorf("** output mentions a record that was not asked for:\n%s", s)
	}
}

func TestRun_errors(t *testing.T) {
	path := writeStore(t)
	tests := [][]string{
		{"--db", path, "missing"},
		{"--db", path, "--visibility", "nope"},
		{"--db", filepath.Join(t.TempDir(), "absent.db")},
		{"--bogus"},
	}
	for _, args := range tests {
		var buf strings.Builder
		if err := run(args, &buf); err == nil {
			t.Errorf("** run(%q) succeeded", args)
		}
	}
}
