package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if catalog.Count() != 5 {
		t.Errorf("Expected 5 default platforms, got %d", catalog.Count())
	}

	for _, id := range []string{"instagram", "facebook", "linkedin", "twitter", "tiktok"} {
		if !catalog.Has(id) {
			t.Errorf("Expected default platform %q", id)
		}
	}

	instagram, ok := catalog.Get("instagram")
	if !ok {
		t.Fatalf("Expected instagram definition")
	}
	if instagram.DisplayName != "Instagram" {
		t.Errorf("Expected display name Instagram, got %q", instagram.DisplayName)
	}
	if len(instagram.ContentTypes) != 4 {
		t.Errorf("Expected 4 instagram content types, got %d", len(instagram.ContentTypes))
	}
	if len(instagram.Suggestions["post"]) == 0 {
		t.Errorf("Expected post suggestions for instagram")
	}
}

func TestLoad_MissingOverrideDir(t *testing.T) {
	catalog, err := Load("/nonexistent/path")
	if err != nil {
		t.Fatalf("Missing override dir should fall back to defaults: %v", err)
	}
	if catalog.Count() != 5 {
		t.Errorf("Expected defaults only, got %d platforms", catalog.Count())
	}
}

func TestLoad_OverrideAddsAndReplaces(t *testing.T) {
	dir := t.TempDir()

	override := `platforms:
  - id: instagram
    display_name: IG
    content_types: [post]
  - id: youtube
    display_name: YouTube
    content_types: [video, short]
`
	if err := os.WriteFile(filepath.Join(dir, "extra.yml"), []byte(override), 0644); err != nil {
		t.Fatalf("Failed to write override: %v", err)
	}

	catalog, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if catalog.Count() != 6 {
		t.Errorf("Expected 6 platforms after override, got %d", catalog.Count())
	}

	instagram, _ := catalog.Get("instagram")
	if instagram.DisplayName != "IG" {
		t.Errorf("Expected override to replace instagram, got %q", instagram.DisplayName)
	}

	if !catalog.Has("youtube") {
		t.Errorf("Expected override to add youtube")
	}
}

func TestLoad_InvalidOverride(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("platforms: [this is: not valid"), 0644); err != nil {
		t.Fatalf("Failed to write override: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Errorf("Expected error for invalid YAML override")
	}
}

func TestLoad_MissingID(t *testing.T) {
	dir := t.TempDir()

	override := `platforms:
  - display_name: Nameless
`
	if err := os.WriteFile(filepath.Join(dir, "nameless.yml"), []byte(override), 0644); err != nil {
		t.Fatalf("Failed to write override: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Errorf("Expected error for platform without id")
	}
}

func TestCatalog_IDsSorted(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ids := catalog.IDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("Expected sorted ids, got %v", ids)
			break
		}
	}
}

func TestCatalog_ContentTypesUnion(t *testing.T) {
	catalog, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	types := catalog.ContentTypes()

	seen := make(map[string]bool)
	for _, ct := range types {
		if seen[ct] {
			t.Errorf("Duplicate content type %q", ct)
		}
		seen[ct] = true
	}

	// post appears on several platforms but must be listed once
	if !seen["post"] || !seen["video"] || !seen["thread"] {
		t.Errorf("Expected union of content types, got %v", types)
	}
}
