package assets

import "embed"

// Static holds the site's public files. They are served under <base>/static/.
//
//go:embed static
var Static embed.FS

// Resolve maps a root-relative path to its deployment-relative form.
// The prefix is concatenated as-is: a path without a leading slash yields
// a joined segment ("/base" + "favicon.ico" == "/basefavicon.ico").
func Resolve(path, prefix string) string {
	if prefix == "" {
		return path
	}
	return prefix + path
}

// Resolver resolves asset and link paths against one base path.
type Resolver struct {
	prefix string
}

func NewResolver(prefix string) Resolver {
	return Resolver{prefix: prefix}
}

// Path returns path under the resolver's base path.
func (r Resolver) Path(path string) string {
	return Resolve(path, r.prefix)
}

func (r Resolver) Prefix() string {
	return r.prefix
}
