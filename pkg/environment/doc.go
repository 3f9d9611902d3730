// Package environment loads Chef environment version pins from a
// chef-repo instead of the Chef server.
//
// FileSource reads a local environments directory. GitSource keeps a
// working copy of a chef-repo Git repository up to date with go-git and
// reads the same files from it. Both implement registry.PinLoader and
// report failures as *registry.UnavailableError.
//
// Environment files may be JSON (the knife default) or YAML:
//
//	{
//	  "name": "production",
//	  "cookbook_versions": {
//	    "apache2": "= 2.0.0"
//	  }
//	}
package environment
