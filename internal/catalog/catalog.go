package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kitabuddy/internal/model"
)

//go:embed default.yaml
var defaultCatalog []byte

type ActionKind string

const (
	ActionOpenLink   ActionKind = "open_link"
	ActionSwitchView ActionKind = "switch_view"
)

type Action struct {
	Kind   ActionKind `yaml:"kind" json:"kind"`
	Target string     `yaml:"target" json:"target"`
}

type Section string

const (
	SectionMain  Section = "main"
	SectionExtra Section = "extra"
)

type Item struct {
	ID         string  `yaml:"id" json:"id"`
	Title      string  `yaml:"title" json:"title"`
	Section    Section `yaml:"section" json:"section"`
	OnlineOnly bool    `yaml:"online_only" json:"onlineOnly"`
	Action     *Action `yaml:"action,omitempty" json:"action,omitempty"`
}

type Catalog struct {
	items []Item
	byID  map[string]Item
}

type file struct {
	Features []Item `yaml:"features"`
}

// Default returns the embedded catalog shipped with the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Features) == 0 {
		return nil, errors.New("catalog has no features")
	}
	c := &Catalog{byID: make(map[string]Item, len(f.Features))}
	for _, item := range f.Features {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			return nil, errors.New("catalog feature missing id")
		}
		if item.Title == "" {
			return nil, fmt.Errorf("catalog feature %s missing title", item.ID)
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("catalog feature %s declared twice", item.ID)
		}
		switch item.Section {
		case "":
			item.Section = SectionMain
		case SectionMain, SectionExtra:
		default:
			return nil, fmt.Errorf("catalog feature %s has unknown section %q", item.ID, item.Section)
		}
		if err := validateAction(item); err != nil {
			return nil, err
		}
		c.items = append(c.items, item)
		c.byID[item.ID] = item
	}
	return c, nil
}

func validateAction(item Item) error {
	if item.Action == nil {
		return nil
	}
	if item.Action.Target == "" {
		return fmt.Errorf("catalog feature %s action missing target", item.ID)
	}
	switch item.Action.Kind {
	case ActionOpenLink:
		return nil
	case ActionSwitchView:
		view, ok := model.ParseView(item.Action.Target)
		if !ok {
			return fmt.Errorf("catalog feature %s switches to unknown view %q", item.ID, item.Action.Target)
		}
		// Menu actions run for any logged in user, so only views without
		// their own entry checks are reachable.
		if view != model.ViewMenu && view != model.ViewChat {
			return fmt.Errorf("catalog feature %s cannot switch to %s", item.ID, view)
		}
		item.Action.Target = string(view)
		return nil
	default:
		return fmt.Errorf("catalog feature %s has unknown action %q", item.ID, item.Action.Kind)
	}
}

func (c *Catalog) Lookup(id string) (Item, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Items returns the catalog in declaration order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}
