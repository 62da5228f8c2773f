package prefabs

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func withDiskDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := Dir
	Dir = dir
	t.Cleanup(func() { Dir = prev })
	return dir
}

func TestLoadEmbeddedSpecs(t *testing.T) {
	withDiskDir(t)

	ai, err := LoadAISpec()
	if err != nil {
		t.Fatalf("LoadAISpec: %v", err)
	}
	if ai.TickInterval != 0.1 || ai.Movement.RunSpeed != 4 || ai.Tension.Thresholds.High != 70 {
		t.Fatalf("unexpected ai spec %+v", ai)
	}

	factions, err := LoadFactionsSpec()
	if err != nil {
		t.Fatalf("LoadFactionsSpec: %v", err)
	}
	for _, name := range []string{"civilian", "rioter", "police"} {
		f, ok := factions.Factions[name]
		if !ok {
			t.Fatalf("missing faction %q", name)
		}
		if f.Color == nil {
			t.Fatalf("faction %q has no color", name)
		}
		if f.PolicyScript == "" {
			continue
		}
		if _, err := LoadScript(f.PolicyScript); err != nil {
			t.Fatalf("faction %q script: %v", name, err)
		}
	}
	if factions.Factions["police"].EscalationMultiplier != 0 {
		t.Fatalf("police should never escalate on their own")
	}

	combat, err := LoadCombatSpec()
	if err != nil {
		t.Fatalf("LoadCombatSpec: %v", err)
	}
	if len(combat.Projectiles) != 3 {
		t.Fatalf("expected 3 projectile kinds, got %d", len(combat.Projectiles))
	}

	missions, err := LoadMissionsSpec()
	if err != nil {
		t.Fatalf("LoadMissionsSpec: %v", err)
	}
	if len(missions.Missions) == 0 || missions.Missions[1].Kind != "DISPERSE_RIOTERS" {
		t.Fatalf("unexpected missions %+v", missions)
	}
	p, err := DecodeParams[DisperseParams](missions.Missions[1].Params)
	if err != nil || p.Target != 5 {
		t.Fatalf("expected disperse target 5, got %+v err=%v", p, err)
	}
}

func TestDiskOverride(t *testing.T) {
	dir := withDiskDir(t)
	if _, ok := ModTime("ai.yaml"); ok {
		t.Fatalf("no disk copy yet")
	}
	if err := os.WriteFile(filepath.Join(dir, "ai.yaml"), []byte("tick_interval: 0.25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ai, err := LoadAISpec()
	if err != nil {
		t.Fatalf("LoadAISpec: %v", err)
	}
	if ai.TickInterval != 0.25 {
		t.Fatalf("expected disk override 0.25, got %v", ai.TickInterval)
	}
	if _, ok := ModTime("prefabs/ai.yaml"); !ok {
		t.Fatalf("expected mod time for disk copy")
	}

	if err := os.WriteFile(filepath.Join(dir, "ai.yaml"), []byte("tick_interval: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAISpec(); err == nil {
		t.Fatalf("expected unmarshal error for broken yaml")
	}
	if _, err := LoadSpec[AISpec]("missing.yaml"); err == nil {
		t.Fatalf("expected load error for missing file")
	}
}

func TestCleanScriptPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"rioter.tengo", "scripts/rioter.tengo"},
		{"scripts/rioter.tengo", "scripts/rioter.tengo"},
		{"prefabs/scripts/rioter.tengo", "scripts/rioter.tengo"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := cleanScriptPath(tc.in); got != tc.want {
			t.Fatalf("cleanScriptPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestYAMLColor(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"rgb", `"#ff8000"`, color.NRGBA{R: 255, G: 128, A: 255}, false},
		{"rgba", `"10203040"`, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}, false},
		{"short", `"#fff"`, color.NRGBA{}, true},
		{"not_hex", `"#gg0000"`, color.NRGBA{}, true},
		{"not_scalar", `[1, 2]`, color.NRGBA{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var doc struct {
				C YAMLColor `yaml:"c"`
			}
			err := yaml.Unmarshal([]byte("c: "+tc.in), &doc)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if doc.C.Color != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, doc.C.Color)
			}
		})
	}
}

func TestWatcherReportsSpecAndScriptChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ai.yaml"), []byte("tick_interval: 0.2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectChange(t, w, Change{Name: "ai.yaml", Kind: ChangeSpec})

	if err := os.WriteFile(filepath.Join(dir, "rioter.tengo"), []byte("escalate := func(in) { return 0 }"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectChange(t, w, Change{Name: "rioter.tengo", Kind: ChangeScript})
}

func expectChange(t *testing.T, w *Watcher, want Change) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-w.Events:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %+v", want)
		}
	}
}

func TestWatcherPoll(t *testing.T) {
	w := &Watcher{Events: make(chan Change, 4), Errors: make(chan error, 1)}
	w.Events <- Change{Name: "ai.yaml"}
	w.Events <- Change{Name: "rioter.tengo", Kind: ChangeScript}
	w.Errors <- errors.New("overflow")

	changes, open := w.Poll()
	if !open || len(changes) != 2 || changes[1].Name != "rioter.tengo" {
		t.Fatalf("expected two changes on an open watcher, got %+v open=%v", changes, open)
	}
	if changes, open = w.Poll(); !open || len(changes) != 0 {
		t.Fatalf("expected nothing pending, got %+v open=%v", changes, open)
	}

	w.Events <- Change{Name: "combat.yaml"}
	close(w.Errors)
	if changes, open = w.Poll(); open || len(changes) != 1 {
		t.Fatalf("expected the last change and a closed watcher, got %+v open=%v", changes, open)
	}
	close(w.Events)
	if changes, open = w.Poll(); open || len(changes) != 0 {
		t.Fatalf("closed watcher should stay closed, got %+v open=%v", changes, open)
	}

	var none *Watcher
	if _, open := none.Poll(); open {
		t.Fatalf("nil watcher should report closed")
	}
}
