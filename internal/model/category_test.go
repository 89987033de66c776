package model

import (
	"errors"
	"testing"

	"github.com/sakif/paperplane/internal/apperror"
)

func TestCategoryFromDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		display string
		want    Category
		wantErr bool
	}{
		{name: "technology", display: "Technology", want: CategoryTech},
		{name: "other maps to ETC", display: "Other", want: CategoryEtc},
		{name: "surrounding spaces trimmed", display: "  Design ", want: CategoryDesign},
		{name: "enum constant is not a display name", display: "TECH", wantErr: true},
		{name: "unknown", display: "Cooking", wantErr: true},
		{name: "empty", display: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CategoryFromDisplayName(tt.display)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrValidation) {
					t.Fatalf("CategoryFromDisplayName(%q) error = %v, want ErrValidation", tt.display, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CategoryFromDisplayName(%q) error = %v", tt.display, err)
			}
			if got != tt.want {
				t.Errorf("CategoryFromDisplayName(%q) = %q, want %q", tt.display, got, tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	got, err := ParseCategory("tech")
	if err != nil {
		t.Fatalf("ParseCategory() error = %v", err)
	}
	if got != CategoryTech {
		t.Errorf("ParseCategory() = %q, want %q", got, CategoryTech)
	}

	if _, err := ParseCategory("Technology"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ParseCategory(display name) error = %v, want ErrValidation", err)
	}
}

// Every category must round-trip through its display name, and no two
// categories may share one.
func TestDisplayNamesAreBijective(t *testing.T) {
	seen := make(map[string]Category)
	for _, c := range Categories() {
		name := c.DisplayName()
		if name == "" {
			t.Fatalf("category %q has no display name", c)
		}
		if other, dup := seen[name]; dup {
			t.Fatalf("display name %q used by %q and %q", name, other, c)
		}
		seen[name] = c

		back, err := CategoryFromDisplayName(name)
		if err != nil || back != c {
			t.Errorf("round trip %q -> %q -> %q (err %v)", c, name, back, err)
		}
	}
	if len(seen) != len(categoryDisplayNames) {
		t.Errorf("Categories() lists %d, table has %d", len(seen), len(categoryDisplayNames))
	}
}
