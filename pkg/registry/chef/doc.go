// Package chef implements registry.Client against the Chef server REST API.
//
// Requests are signed with the API client's RSA key using version 1.3 of
// the Chef authentication protocol. Connection settings come from the
// chef section of the configuration, falling back to knife.rb.
//
// Endpoints used:
//
//	GET    /cookbooks?num_versions=all
//	GET    /environments/{name}
//	DELETE /cookbooks/{name}/{version}
package chef
