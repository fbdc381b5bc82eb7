package assets

// Resolver turns a source asset name into the URL path a page should
// reference, combining manifest lookup with the static mount prefix.
type Resolver interface {
	// Asset resolves a source asset path to its full URL path.
	//
	// Example:
	//   resolver.Asset("app.css") -> "/static/app.a1b2c3d4.css"
	Asset(source string) string
}

// manifestResolver wraps a Manifest to implement Resolver.
type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver creates a Resolver backed by a Manifest. The prefix is
// prepended to every resolved path and should match the static mount
// point, "/static/" by default.
//
//	manifest, _ := assets.Load("static/manifest.json")
//	resolver := assets.NewResolver(manifest, "/static/")
//	resolver.Asset("app.css") // "/static/app.a1b2c3d4.css"
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{
		manifest: m,
		prefix:   prefix,
	}
}

func (r *manifestResolver) Asset(source string) string {
	resolved := r.manifest.Resolve(source)
	return r.prefix + resolved
}

// passthrough returns assets unchanged, for setups without a manifest.
type passthrough struct {
	prefix string
}

// NewPassthroughResolver creates a resolver that returns source names
// unchanged. It keeps dev and prod call sites identical when no manifest
// is present:
//
//	// Development:
//	resolver := assets.NewPassthroughResolver("/static/")
//	resolver.Asset("app.css") // "/static/app.css"
//
//	// Production:
//	resolver := assets.NewResolver(manifest, "/static/")
//	resolver.Asset("app.css") // "/static/app.a1b2c3d4.css"
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(source string) string {
	return p.prefix + source
}
