package model

import (
	"strings"

	"github.com/sakif/paperplane/internal/apperror"
)

// Category is the closed set of listing categories. The string value is what
// gets stored in the ideas.category column and what clients send on create.
type Category string

const (
	CategoryTech          Category = "TECH"
	CategoryBusiness      Category = "BUSINESS"
	CategoryDesign        Category = "DESIGN"
	CategoryEducation     Category = "EDUCATION"
	CategoryLifestyle     Category = "LIFESTYLE"
	CategoryHealth        Category = "HEALTH"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryEtc           Category = "ETC"
)

// categoryDisplayNames is the one place display names live. Every category
// has exactly one display name and no two categories share one.
var categoryDisplayNames = map[Category]string{
	CategoryTech:          "Technology",
	CategoryBusiness:      "Business",
	CategoryDesign:        "Design",
	CategoryEducation:     "Education",
	CategoryLifestyle:     "Lifestyle",
	CategoryHealth:        "Health",
	CategoryEntertainment: "Entertainment",
	CategoryEtc:           "Other",
}

var categoriesByDisplayName = func() map[string]Category {
	m := make(map[string]Category, len(categoryDisplayNames))
	for c, name := range categoryDisplayNames {
		m[name] = c
	}
	return m
}()

// Categories lists every category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryTech, CategoryBusiness, CategoryDesign, CategoryEducation,
		CategoryLifestyle, CategoryHealth, CategoryEntertainment, CategoryEtc,
	}
}

// DisplayName returns the human-readable name, or "" for an invalid category.
func (c Category) DisplayName() string {
	return categoryDisplayNames[c]
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	_, ok := categoryDisplayNames[c]
	return ok
}

// ParseCategory parses the enum constant ("TECH"). Case-insensitive.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", apperror.ValidationFailed("category", "unknown category: "+s)
	}
	return c, nil
}

// CategoryFromDisplayName maps a display name ("Technology") to its category.
// There is no fallback: an unmapped name is a validation failure.
func CategoryFromDisplayName(name string) (Category, error) {
	c, ok := categoriesByDisplayName[strings.TrimSpace(name)]
	if !ok {
		return "", apperror.ValidationFailed("categoryDisplayName", "unknown category display name: "+name)
	}
	return c, nil
}
