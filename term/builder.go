package term

// Builder collects the identity of a term. Build is the only way to obtain a
// *Term; a Builder can be reused, each Build taking a new reference.
type Builder struct {
	reg    *Registry
	logic  string
	params Params
	dtype  OutputType
	deps   []*Term
}

// Params sets the logic params. The map is copied.
func (b *Builder) Params(p Params) *Builder {
	b.params = p.clone()
	return b
}

// Output sets the declared output type (default TypeAssets).
func (b *Builder) Output(t OutputType) *Builder {
	b.dtype = t
	return b
}

// DependsOn appends dependencies.
func (b *Builder) DependsOn(deps ...*Term) *Builder {
	b.deps = append(b.deps, deps...)
	return b
}

// Build returns the interned term, constructing it if needed. Any
// construction or validation failure returns an error wrapping
// ErrConstruction and leaves the registry unchanged.
func (b *Builder) Build() (*Term, error) {
	if b.reg == nil {
		return nil, constructionErr("%s: builder has no registry", b.logic)
	}
	if b.params == nil {
		b.params = Params{}
	}
	return b.reg.acquire(b)
}
