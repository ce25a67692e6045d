package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestThemes_AllRegistered(t *testing.T) {
	expected := []string{"default", "light", "monokai"}
	for _, name := range expected {
		if _, ok := Themes[name]; !ok {
			t.Errorf("expected theme %q to be registered", name)
		}
	}
}

func TestThemes_NamesMatch(t *testing.T) {
	for name, th := range Themes {
		if th.Name != name {
			t.Errorf("theme registered as %q has Name=%q", name, th.Name)
		}
	}
}

func TestDefault(t *testing.T) {
	d := Default()
	if d == nil {
		t.Fatal("Default() returned nil")
	}
	if d.Name != "default" {
		t.Errorf("Default().Name = %q, want %q", d.Name, "default")
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"default", "default"},
		{"light", "light"},
		{"monokai", "monokai"},
		{"nonexistent", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := Get(tt.name)
			if th == nil {
				t.Fatalf("Get(%q) returned nil", tt.name)
			}
			if th.Name != tt.want {
				t.Errorf("Get(%q).Name = %q, want %q", tt.name, th.Name, tt.want)
			}
		})
	}
}

func TestThemes_StylesHaveColours(t *testing.T) {
	for name, th := range Themes {
		t.Run(name, func(t *testing.T) {
			styles := map[string]interface{ GetBold() bool }{
				"SQLKeyword":  th.SQLKeyword,
				"TableHeader": th.TableHeader,
				"Title":       th.Title,
				"ErrorText":   th.ErrorText,
			}
			for field, s := range styles {
				if !s.GetBold() {
					t.Errorf("%s.%s should be bold", name, field)
				}
			}
			if _, none := th.SQLComment.GetForeground().(lipgloss.NoColor); none {
				t.Errorf("%s.SQLComment has no foreground", name)
			}
			if !th.TableNull.GetItalic() {
				t.Errorf("%s.TableNull should be italic", name)
			}
		})
	}
}
