// cookbook-cleaner removes old cookbook versions from a Chef server.
//
// For every cookbook it finds the version pinned by an environment,
// keeps that version, everything newer and a configurable number of
// older versions, and deletes the rest. Nothing is deleted unless
// --really-clean is given.
//
// Usage:
//
//	# Report what would be deleted, using ~/.chef/knife.rb
//	cookbook-cleaner clean
//
//	# Keep three historical versions behind the staging pins and delete the rest
//	cookbook-cleaner clean -e staging -H 3 --really-clean
//
//	# Run weekly with metrics and health endpoints
//	cookbook-cleaner schedule --config /etc/cookbook-cleaner/config.yaml
//
//	# Show recent runs
//	cookbook-cleaner history list
package main

import "os"

func main() {
	os.Exit(Execute())
}
