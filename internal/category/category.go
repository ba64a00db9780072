package category

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Others is the fallback category for unknown or missing extensions
const Others = "Others"

// defaultCategories lists the built-in categories in display order
var defaultCategories = []struct {
	Name       string
	Extensions []string
}{
	{"Images", []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}},
	{"Documents", []string{".pdf", ".docx", ".doc", ".txt", ".xlsx", ".pptx"}},
	{"Videos", []string{".mp4", ".mov", ".avi", ".mkv"}},
	{"Audio", []string{".mp3", ".wav", ".aac"}},
	{"Archives", []string{".zip", ".rar", ".7z", ".tar", ".gz"}},
	{"Code", []string{".py", ".js", ".html", ".css", ".cpp", ".java", ".c"}},
}

// Table maps lowercase extensions (with leading dot) to category names.
// A Table is immutable once built.
type Table struct {
	byExtension map[string]string
	names       []string
}

// Default returns the built-in category table
func Default() *Table {
	t, _ := New(nil)
	return t
}

// New builds a table from the built-in categories with rules layered on top.
// Rules map a category name to the extensions it should claim; an extension
// claimed by a rule is removed from its built-in category.
func New(rules map[string][]string) (*Table, error) {
	t := &Table{byExtension: make(map[string]string)}

	for _, c := range defaultCategories {
		t.names = append(t.names, c.Name)
		for _, ext := range c.Extensions {
			t.byExtension[ext] = c.Name
		}
	}

	// Sorted so conflicting rules always report the same pair
	ruleNames := make([]string, 0, len(rules))
	for name := range rules {
		ruleNames = append(ruleNames, name)
	}
	sort.Strings(ruleNames)

	claimed := make(map[string]string)
	for _, name := range ruleNames {
		if err := ValidateName(name); err != nil {
			return nil, err
		}
		for _, raw := range rules[name] {
			ext := NormalizeExtension(raw)
			if ext == "" {
				continue
			}
			if prev, ok := claimed[ext]; ok && prev != name {
				return nil, fmt.Errorf("extension %s is assigned to both %s and %s", ext, prev, name)
			}
			claimed[ext] = name
			t.byExtension[ext] = name
		}
		if !t.hasName(name) {
			t.names = append(t.names, name)
		}
	}

	if !t.hasName(Others) {
		t.names = append(t.names, Others)
	}

	return t, nil
}

func (t *Table) hasName(name string) bool {
	for _, n := range t.names {
		if n == name {
			return true
		}
	}
	return false
}

// CategoryFor returns the category for an extension. The lookup is
// case-insensitive and tolerates a missing leading dot.
func (t *Table) CategoryFor(ext string) string {
	ext = NormalizeExtension(ext)
	if ext == "" {
		return Others
	}
	if name, ok := t.byExtension[ext]; ok {
		return name
	}
	return Others
}

// Classify returns the category of a file name based on the literal text
// after its last dot, compared case-insensitively. Only the base name is
// considered.
func (t *Table) Classify(fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if name, ok := t.byExtension[ext]; ok {
		return name
	}
	return Others
}

// Names returns all category names, built-ins first and Others last
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.names))
	for _, n := range t.names {
		if n != Others {
			names = append(names, n)
		}
	}
	return append(names, Others)
}

// IsCategory reports whether name is one of the table's category folders
func (t *Table) IsCategory(name string) bool {
	return t.hasName(name)
}

// Extensions returns the sorted extensions mapped to a category
func (t *Table) Extensions(name string) []string {
	var exts []string
	for ext, n := range t.byExtension {
		if n == name {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// NormalizeExtension trims and lowercases a configured extension and ensures
// it starts with a dot. Blank input yields "".
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// ValidateName checks that a category name can be used as a single folder name
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("category name must not be empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid category name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("category name %q must not contain path separators", name)
	}
	return nil
}
