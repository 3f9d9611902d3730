package registry

import (
	"context"
	"sort"

	"chefops/cookbook-cleaner/pkg/version"
)

// Inventory maps each cookbook name to the raw version strings published
// on the server, in whatever order the server returned them.
type Inventory map[string][]string

// Names returns the cookbook names in lexical order.
func (inv Inventory) Names() []string {
	names := make([]string, 0, len(inv))
	for name := range inv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VersionCount returns the total number of versions across all cookbooks.
func (inv Inventory) VersionCount() int {
	total := 0
	for _, versions := range inv {
		total += len(versions)
	}
	return total
}

// Pins maps cookbook names to the raw version constraint an environment
// pins them to. A cookbook missing from the map is not promoted.
type Pins map[string]string

// InventoryLoader lists every version of every cookbook on the server.
type InventoryLoader interface {
	LoadInventory(ctx context.Context) (Inventory, error)
}

// PinLoader loads the version constraints of a single environment.
type PinLoader interface {
	LoadPins(ctx context.Context, environment string) (Pins, error)
}

// Deleter removes one cookbook version from the server.
type Deleter interface {
	DeleteVersion(ctx context.Context, name string, v version.Version) error
}

// Client is the full collaborator surface needed by a cleanup run.
type Client interface {
	InventoryLoader
	PinLoader
	Deleter
}

// Composite assembles a Client from independent parts, for example
// cookbook inventory from the Chef server and pins from a Git checkout.
type Composite struct {
	InventoryLoader
	PinLoader
	Deleter
}
