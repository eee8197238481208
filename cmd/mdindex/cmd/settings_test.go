package cmd

import (
	"testing"

	"github.com/mgomes/mdindex/internal/config"
)

func TestAddSource_New(t *testing.T) {
	sources := []config.Source{{Path: "/notes", Enabled: true}}

	got := addSource(sources, "/code")

	if len(got) != 2 || got[1].Path != "/code" || !got[1].Enabled {
		t.Errorf("expected /code appended, got %+v", got)
	}
	if len(sources) != 1 {
		t.Error("expected input slice to be unchanged")
	}
}

func TestAddSource_ReenablesExisting(t *testing.T) {
	sources := []config.Source{{Path: "/notes/", Enabled: false}}

	got := addSource(sources, "/notes")

	if len(got) != 1 || !got[0].Enabled {
		t.Errorf("expected existing source re-enabled, got %+v", got)
	}
	if sources[0].Enabled {
		t.Error("expected input slice to be unchanged")
	}
}

func TestAddSource_MatchesTilde(t *testing.T) {
	t.Setenv("HOME", "/home/u")
	sources := []config.Source{{Path: "~/Notes", Enabled: false}}

	got := addSource(sources, "/home/u/Notes")

	if len(got) != 1 || !got[0].Enabled {
		t.Errorf("expected ~/Notes to match its expansion, got %+v", got)
	}
}

func TestRemoveSource(t *testing.T) {
	sources := []config.Source{{Path: "/notes", Enabled: true}, {Path: "/code", Enabled: true}}

	got, ok := removeSource(sources, "/code")
	if !ok {
		t.Fatal("expected /code to be found")
	}
	if len(got) != 1 || got[0].Path != "/notes" {
		t.Errorf("expected only /notes, got %+v", got)
	}

	if _, ok := removeSource(got, "/missing"); ok {
		t.Error("expected unknown source to report not found")
	}
}
