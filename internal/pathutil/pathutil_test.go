package pathutil

import "testing"

func TestValidName(t *testing.T) {
	valid := []string{"report.pdf", "My Documents", ".hidden", "a"}
	for _, name := range valid {
		if !ValidName(name) {
			t.Errorf("ValidName(%q) = false, want true", name)
		}
	}

	invalid := []string{"", ".", "..", "a/b", `a\b`, "nul\x00byte"}
	for _, name := range invalid {
		if ValidName(name) {
			t.Errorf("ValidName(%q) = true, want false", name)
		}
	}
}

func TestNumberedName(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"report.pdf", 1, "report (1).pdf"},
		{"report.pdf", 12, "report (12).pdf"},
		{"archive.tar.gz", 2, "archive.tar (2).gz"},
		{"Projects", 3, "Projects (3)"},
		{".profile", 1, ".profile (1)"},
	}
	for _, tt := range tests {
		if got := NumberedName(tt.name, tt.n); got != tt.want {
			t.Errorf("NumberedName(%q, %d) = %q, want %q", tt.name, tt.n, got, tt.want)
		}
	}
}

func TestWithinRoot(t *testing.T) {
	if !WithinRoot("/data", "/data/docs/a.txt") {
		t.Error("WithinRoot(/data, /data/docs/a.txt) = false, want true")
	}
	if !WithinRoot("/data", "/data") {
		t.Error("WithinRoot(/data, /data) = false, want true")
	}
	if WithinRoot("/data", "/database") {
		t.Error("WithinRoot(/data, /database) = true, want false")
	}
	if WithinRoot("/data", "/etc/passwd") {
		t.Error("WithinRoot(/data, /etc/passwd) = true, want false")
	}
}
