// Package registry defines the boundary between a cleanup run and the
// server that stores cookbooks.
//
// A run needs three capabilities, each expressed as a small interface so
// that they can come from different backends:
//
//   - InventoryLoader lists every version of every cookbook
//   - PinLoader loads the version constraints of one environment
//   - Deleter removes a single cookbook version
//
// The Chef server implementation lives in the chef subpackage. Pins can
// also come from a chef-repo checkout (see package environment); use
// Composite to mix sources:
//
//	client := registry.Composite{
//	    InventoryLoader: chefClient,
//	    PinLoader:       gitSource,
//	    Deleter:         chefClient,
//	}
//
// MemoryRegistry is an in-process implementation used for offline replays
// of an inventory dump and in tests.
//
// # Errors
//
// Load failures are wrapped in UnavailableError; a run aborts on them.
// Delete failures are wrapped in DeletionError; a run reports them and
// moves on to the next version.
package registry
