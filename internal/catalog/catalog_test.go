package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if len(c.Items()) != 13 {
		t.Fatalf("expected 13 features, got %d", len(c.Items()))
	}
	online := map[string]bool{"chat": true, "7": true, "sos": true, "padlet": true, "web": true, "2": true}
	for _, item := range c.Items() {
		if item.OnlineOnly != online[item.ID] {
			t.Fatalf("unexpected online_only=%v for %s", item.OnlineOnly, item.ID)
		}
	}
	chat, ok := c.Lookup("chat")
	if !ok || chat.Action == nil || chat.Action.Kind != ActionSwitchView || chat.Action.Target != "CHAT" {
		t.Fatalf("expected chat to switch to CHAT, got %+v", chat.Action)
	}
	sos, _ := c.Lookup("sos")
	if sos.Action == nil || sos.Action.Kind != ActionOpenLink {
		t.Fatalf("expected sos to open a link")
	}
	if _, ok := c.Lookup("99"); ok {
		t.Fatalf("expected unknown id lookup to fail")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":       "features: []",
		"missing id":  "features:\n  - title: A\n",
		"duplicate":   "features:\n  - id: a\n    title: A\n  - id: a\n    title: B\n",
		"bad action":  "features:\n  - id: a\n    title: A\n    action:\n      kind: launch\n      target: x\n",
		"bad view":    "features:\n  - id: a\n    title: A\n    action:\n      kind: switch_view\n      target: NOWHERE\n",
		"bad section": "features:\n  - id: a\n    title: A\n    section: side\n",
		"admin view":  "features:\n  - id: a\n    title: A\n    action:\n      kind: switch_view\n      target: ADMIN\n",
		"login view":  "features:\n  - id: a\n    title: A\n    action:\n      kind: switch_view\n      target: login\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Fatalf("expected %s catalog to error", name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "features:\n  - id: quiz\n    title: Kuiz\n    online_only: true\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write error: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	item, ok := c.Lookup("quiz")
	if !ok || !item.OnlineOnly || item.Section != SectionMain {
		t.Fatalf("unexpected item %+v", item)
	}
}
