package launch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// App is a launchable catalog entry.
type App struct {
	Name    string
	Command string
}

// DefaultApps is the launcher's built-in app list, in display order.
var DefaultApps = []App{
	{Name: "Terminal", Command: "foot"},
	{Name: "Browser", Command: "firefox"},
	{Name: "Files", Command: "nautilus"},
	{Name: "Settings", Command: "gnome-control-center"},
}

// Catalog maps app names to commands. Lookups ignore case.
type Catalog struct {
	apps []App
}

// NewCatalog starts from DefaultApps and applies overrides. Overrides for
// built-in names replace the command; other names are appended in sorted
// order. An empty command removes the entry.
func NewCatalog(overrides map[string]string) *Catalog {
	c := &Catalog{apps: append([]App(nil), DefaultApps...)}

	extra := make([]string, 0, len(overrides))
	for name := range overrides {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		c.Set(name, overrides[name])
	}
	return c
}

// Set adds, replaces or (with an empty command) removes an entry.
func (c *Catalog) Set(name, command string) {
	name = strings.TrimSpace(name)
	command = strings.TrimSpace(command)
	if name == "" {
		return
	}
	for i, app := range c.apps {
		if !strings.EqualFold(app.Name, name) {
			continue
		}
		if command == "" {
			c.apps = append(c.apps[:i], c.apps[i+1:]...)
			return
		}
		c.apps[i].Command = command
		return
	}
	if command != "" {
		c.apps = append(c.apps, App{Name: name, Command: command})
	}
}

// Apps returns the entries in display order.
func (c *Catalog) Apps() []App {
	return append([]App(nil), c.apps...)
}

// Lookup finds an entry by exact, case-insensitive name.
func (c *Catalog) Lookup(name string) (App, bool) {
	for _, app := range c.apps {
		if strings.EqualFold(app.Name, strings.TrimSpace(name)) {
			return app, true
		}
	}
	return App{}, false
}

// Resolve finds the entry a user most likely meant: an exact name, then a
// unique prefix, then the closest name by edit distance when it is close
// enough to be a typo.
func (c *Catalog) Resolve(query string) (App, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return App{}, fmt.Errorf("app name is required")
	}
	if app, ok := c.Lookup(query); ok {
		return app, nil
	}

	lower := strings.ToLower(query)
	var prefixed []App
	for _, app := range c.apps {
		if strings.HasPrefix(strings.ToLower(app.Name), lower) {
			prefixed = append(prefixed, app)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], nil
	}
	if len(prefixed) > 1 {
		return App{}, fmt.Errorf("app %q is ambiguous: %s", query, joinNames(prefixed))
	}

	best := -1
	bestDist := 0
	for i, app := range c.apps {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(app.Name))
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 && bestDist <= maxTypoDistance(query) {
		return c.apps[best], nil
	}
	return App{}, fmt.Errorf("unknown app %q (known: %s)", query, joinNames(c.apps))
}

func maxTypoDistance(query string) int {
	return max(len(query)/3, 1)
}

func joinNames(apps []App) string {
	names := make([]string, len(apps))
	for i, app := range apps {
		names[i] = app.Name
	}
	return strings.Join(names, ", ")
}

// Launcher spawns catalog entries by name.
type Launcher struct {
	Catalog *Catalog
	Spawner *Spawner
}

// Launch resolves name in the catalog and starts its command.
func (l *Launcher) Launch(name string) (App, error) {
	app, err := l.Catalog.Resolve(name)
	if err != nil {
		return App{}, err
	}
	if err := l.Spawner.SpawnCommand(app.Command); err != nil {
		return app, fmt.Errorf("launch %s: %w", app.Name, err)
	}
	return app, nil
}
