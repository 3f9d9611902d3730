package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"chefops/cookbook-cleaner/pkg/version"
)

// cookbookListEntry mirrors one value of the Chef server's
// GET /cookbooks?num_versions=all response.
type cookbookListEntry struct {
	URL      string `json:"url"`
	Versions []struct {
		URL     string `json:"url"`
		Version string `json:"version"`
	} `json:"versions"`
}

// DecodeCookbookList decodes a Chef server cookbook listing into an
// Inventory, preserving the server's version order.
func DecodeCookbookList(data []byte) (Inventory, error) {
	var raw map[string]cookbookListEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode cookbook list: %w", err)
	}

	inv := make(Inventory, len(raw))
	for name, entry := range raw {
		versions := make([]string, 0, len(entry.Versions))
		for _, v := range entry.Versions {
			versions = append(versions, v.Version)
		}
		inv[name] = versions
	}
	return inv, nil
}

// DeleteCall records one DeleteVersion invocation on a MemoryRegistry.
type DeleteCall struct {
	Cookbook string
	Version  string
}

// MemoryRegistry is an in-process registry backed by maps.
// It serves offline replays of an inventory dump and tests; failures can
// be injected per operation.
type MemoryRegistry struct {
	mu sync.Mutex

	inventory    Inventory
	environments map[string]Pins

	// InventoryErr, when set, is returned by LoadInventory.
	InventoryErr error

	// PinsErr, when set, is returned by LoadPins.
	PinsErr error

	// DeleteErrs maps "cookbook@version" to the error DeleteVersion returns.
	DeleteErrs map[string]error

	deletes []DeleteCall
}

// NewMemoryRegistry creates a registry holding the given inventory and
// environment pins. Both maps are copied.
func NewMemoryRegistry(inventory Inventory, environments map[string]Pins) *MemoryRegistry {
	m := &MemoryRegistry{
		inventory:    make(Inventory, len(inventory)),
		environments: make(map[string]Pins, len(environments)),
		DeleteErrs:   make(map[string]error),
	}
	for name, versions := range inventory {
		m.inventory[name] = append([]string(nil), versions...)
	}
	for env, pins := range environments {
		cp := make(Pins, len(pins))
		for k, v := range pins {
			cp[k] = v
		}
		m.environments[env] = cp
	}
	return m
}

// NewMemoryRegistryFromFile loads an inventory dump in the Chef server's
// cookbook list format.
func NewMemoryRegistryFromFile(path string) (*MemoryRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewUnavailableError("inventory", path, err)
	}
	inv, err := DecodeCookbookList(data)
	if err != nil {
		return nil, NewUnavailableError("inventory", path, err)
	}
	return NewMemoryRegistry(inv, nil), nil
}

// SetPins replaces the pins of an environment.
func (m *MemoryRegistry) SetPins(environment string, pins Pins) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.environments[environment] = pins
}

// FailDelete makes DeleteVersion fail for one cookbook version.
func (m *MemoryRegistry) FailDelete(cookbook, v string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteErrs[cookbook+"@"+v] = err
}

// LoadInventory returns a copy of the stored inventory.
func (m *MemoryRegistry) LoadInventory(ctx context.Context) (Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InventoryErr != nil {
		return nil, NewUnavailableError("inventory", "memory", m.InventoryErr)
	}
	out := make(Inventory, len(m.inventory))
	for name, versions := range m.inventory {
		out[name] = append([]string(nil), versions...)
	}
	return out, nil
}

// LoadPins returns a copy of an environment's pins.
func (m *MemoryRegistry) LoadPins(ctx context.Context, environment string) (Pins, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PinsErr != nil {
		return nil, NewUnavailableError("pins", "memory", m.PinsErr)
	}
	pins, ok := m.environments[environment]
	if !ok {
		return nil, NewUnavailableError("pins", "memory", fmt.Errorf("environment %q: %w", environment, ErrNotFound))
	}
	out := make(Pins, len(pins))
	for k, v := range pins {
		out[k] = v
	}
	return out, nil
}

// DeleteVersion removes a version from the stored inventory.
func (m *MemoryRegistry) DeleteVersion(ctx context.Context, name string, v version.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletes = append(m.deletes, DeleteCall{Cookbook: name, Version: v.String()})

	if err, ok := m.DeleteErrs[name+"@"+v.String()]; ok {
		return NewDeletionError(name, v.String(), err)
	}

	versions := m.inventory[name]
	for i, raw := range versions {
		if raw == v.String() {
			m.inventory[name] = append(versions[:i:i], versions[i+1:]...)
			return nil
		}
	}
	return NewDeletionError(name, v.String(), ErrNotFound)
}

// Deletes returns every DeleteVersion call made so far, in call order.
func (m *MemoryRegistry) Deletes() []DeleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeleteCall(nil), m.deletes...)
}
