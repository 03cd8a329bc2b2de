package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestBuiltinPresetsLoad(t *testing.T) {
	s, err := NewService("", zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	presets := s.Presets()
	if len(presets) != 5 {
		t.Fatalf("built-in presets = %d, want 5", len(presets))
	}
	first := presets[0]
	if first.Name != "single" || first.Rows != 1 || first.Cols != 1 {
		t.Errorf("first preset = %+v, want single 1x1", first)
	}
	last := presets[len(presets)-1]
	if last.Name != "six" || last.Rows != 2 || last.Cols != 3 {
		t.Errorf("last preset = %+v, want six 2x3", last)
	}
}

func TestNextCyclesInFileOrder(t *testing.T) {
	s, err := NewService("", zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	rows, cols, name, err := s.Next("single")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if name != "dual" || rows != 1 || cols != 2 {
		t.Errorf("after single got %s %dx%d, want dual 1x2", name, rows, cols)
	}

	// The last preset wraps to the first.
	rows, cols, name, err = s.Next("six")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if name != "single" || rows != 1 || cols != 1 {
		t.Errorf("after six got %s %dx%d, want single 1x1", name, rows, cols)
	}
}

func TestNextRestartsOnUnknownLayout(t *testing.T) {
	s, err := NewService("", zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	// A custom layout applied through the API has no preset name.
	rows, cols, name, err := s.Next("my-weird-grid")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if name != "single" || rows != 1 || cols != 1 {
		t.Errorf("unknown current gave %s %dx%d, want single 1x1", name, rows, cols)
	}
}

func TestUserFileReplacesPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.yaml")
	content := `presets:
  - name: wide
    rows: 1
    cols: 4
  - name: tall
    rows: 4
    cols: 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write layouts file: %v", err)
	}

	s, err := NewService(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	presets := s.Presets()
	if len(presets) != 2 || presets[0].Name != "wide" || presets[1].Name != "tall" {
		t.Fatalf("presets = %+v, want the user's wide+tall set", presets)
	}

	_, _, name, err := s.Next("tall")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if name != "wide" {
		t.Errorf("cycle after tall = %s, want wide", name)
	}
}

func TestBrokenUserFileFallsBack(t *testing.T) {
	cases := map[string]string{
		"not yaml":      "][ nope",
		"empty set":     "presets: []",
		"missing name":  "presets:\n  - rows: 1\n    cols: 2\n",
		"oversize grid": "presets:\n  - name: huge\n    rows: 9\n    cols: 9\n",
		"duplicate": "presets:\n  - name: twin\n    rows: 1\n    cols: 1\n" +
			"  - name: twin\n    rows: 2\n    cols: 2\n",
	}

	for label, content := range cases {
		t.Run(label, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "layouts.yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write layouts file: %v", err)
			}

			s, err := NewService(path, zerolog.Nop())
			if err != nil {
				t.Fatalf("new service: %v", err)
			}
			if got := len(s.Presets()); got != 5 {
				t.Errorf("presets = %d, want the 5 built-ins", got)
			}
		})
	}
}

func TestMissingUserFileUsesBuiltins(t *testing.T) {
	s, err := NewService(filepath.Join(t.TempDir(), "absent.yaml"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if got := len(s.Presets()); got != 5 {
		t.Errorf("presets = %d, want the 5 built-ins", got)
	}
}
