// ABOUTME: Catalog of spoken farming guides
// ABOUTME: Loads guides from YAML and recommends them by primary crops
package guides

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtin []byte

// Guide is one audio guide
type Guide struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Content     string   `yaml:"content"`
	Keywords    []string `yaml:"keywords"`
}

// Script is the text read aloud for the guide
func (g Guide) Script() string {
	return g.Title + ". " + g.Content
}

// Catalog is an ordered set of guides
type Catalog struct {
	guides []Guide
}

// Builtin returns the bundled catalog
func Builtin() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("builtin guide catalog: %v", err))
	}
	return c
}

// Load reads a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guide catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var guides []Guide
	if err := yaml.Unmarshal(data, &guides); err != nil {
		return nil, fmt.Errorf("parse guide catalog: %w", err)
	}

	seen := make(map[string]bool)
	for _, g := range guides {
		if g.ID == "" || g.Title == "" {
			return nil, fmt.Errorf("guide catalog: entry missing id or title")
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("guide catalog: duplicate id %q", g.ID)
		}
		seen[g.ID] = true
	}
	return &Catalog{guides: guides}, nil
}

// All returns every guide in catalog order
func (c *Catalog) All() []Guide {
	return append([]Guide(nil), c.guides...)
}

// Get finds a guide by id
func (c *Catalog) Get(id string) (Guide, bool) {
	for _, g := range c.guides {
		if g.ID == id {
			return g, true
		}
	}
	return Guide{}, false
}

var termSplit = regexp.MustCompile(`[\s,]+`)

// Recommend ranks guides by keyword overlap with the farmer's crops.
// Each matching keyword scores 10; ties keep catalog order; at most 3 are returned.
// With no crops the whole catalog is returned.
func (c *Catalog) Recommend(primaryCrops string) []Guide {
	var terms []string
	for _, t := range termSplit.Split(strings.ToLower(primaryCrops), -1) {
		if t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return c.All()
	}

	type scored struct {
		guide Guide
		score int
	}
	ranked := make([]scored, len(c.guides))
	for i, g := range c.guides {
		ranked[i] = scored{guide: g}
		for _, k := range g.Keywords {
			k = strings.ToLower(k)
			for _, term := range terms {
				if strings.Contains(term, k) || strings.Contains(k, term) {
					ranked[i].score += 10
					break
				}
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]Guide, 0, 3)
	for _, r := range ranked {
		if len(out) == 3 {
			break
		}
		out = append(out, r.guide)
	}
	return out
}
