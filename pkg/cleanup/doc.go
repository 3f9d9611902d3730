// Package cleanup runs the cookbook cleanup loop.
//
// An Orchestrator loads the cookbook inventory and the environment's pins
// once, then for every cookbook selects the versions to keep and delete
// with package retention, reports the decision and, only in destructive
// mode, deletes the selected versions. Deletion failures are reported and
// do not stop the run; a registry that cannot be read aborts it.
package cleanup
