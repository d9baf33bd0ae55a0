package platform

// Platform describes one supported social platform: its content types and
// the usage-suggestion templates attached to search results.
type Platform struct {
	ID           string              `yaml:"id"`
	DisplayName  string              `yaml:"display_name"`
	ContentTypes []string            `yaml:"content_types"`
	Suggestions  map[string][]string `yaml:"suggestions"`
}

type catalogFile struct {
	Platforms []Platform `yaml:"platforms"`
}
