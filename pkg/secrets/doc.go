// Package secrets resolves ${secret:name} references in credential
// settings.
//
// A Resolver consults its providers in order. EnvProvider reads
// environment variables under a prefix, so with the default prefix the
// secret "git-token" comes from COOKBOOK_CLEANER_SECRET_GIT_TOKEN.
// FileProvider reads one file per secret from a directory, the layout
// used by Kubernetes and Docker secret mounts, and refuses files that
// are readable by group or others.
//
//	resolver := secrets.NewResolver(logger,
//	    secrets.NewEnvProvider("COOKBOOK_CLEANER_SECRET_"),
//	    fileProvider,
//	)
//	token, err := resolver.Resolve(ctx, "${secret:git-token}")
//
// Values without a reference are returned unchanged.
package secrets
