package term

import (
	"sync"
)

// Registry interns terms by identity. Each Acquire of an identity returns the
// same *Term and takes a reference; Release drops one. A term is evicted when
// its count reaches zero, releasing the references it held on its
// dependencies.
type Registry struct {
	mu        sync.Mutex
	validator DomainValidator
	entries   map[string]*entry
}

type entry struct {
	term *Term
	refs int
}

// NewRegistry creates a registry that checks domains with v. A nil v accepts
// every domain.
func NewRegistry(v DomainValidator) *Registry {
	if v == nil {
		v = NopDomainValidator{}
	}
	return &Registry{
		validator: v,
		entries:   make(map[string]*entry),
	}
}

// Builder starts a term definition against this registry.
func (r *Registry) Builder(logic string) *Builder {
	return &Builder{reg: r, logic: logic, dtype: TypeAssets}
}

// Len is the number of live terms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Refs reports the reference count of t, zero once evicted.
func (r *Registry) Refs(t *Term) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[t.key]; ok && e.term == t {
		return e.refs
	}
	return 0
}

// Release drops one reference to t.
func (r *Registry) Release(t *Term) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(t)
}

func (r *Registry) releaseLocked(t *Term) {
	e, ok := r.entries[t.key]
	if !ok || e.term != t {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(r.entries, t.key)
	for _, d := range t.deps {
		r.releaseLocked(d)
	}
}

// acquire returns the interned term for b, constructing and validating it
// on first use.
func (r *Registry) acquire(b *Builder) (*Term, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Constructed: dependencies, domain and type are fixed here.
	for i, d := range b.deps {
		if d == nil {
			return nil, constructionErr("%s: dependency %d is nil", b.logic, i)
		}
		e, ok := r.entries[d.key]
		if d.reg != r || !ok || e.term != d {
			return nil, constructionErr("%s: dependency %s is not live in this registry", b.logic, d)
		}
	}
	switch b.dtype {
	case TypeAssets, TypeScores, TypeBool:
	default:
		return nil, constructionErr("%s: invalid output type %q", b.logic, b.dtype)
	}
	domain, err := resolveDomain(InferDomain(b.params), b.deps)
	if err != nil {
		return nil, err
	}
	canon, err := b.params.canonical()
	if err != nil {
		return nil, constructionErr("%s: %v", b.logic, err)
	}
	id := Identity{
		Domain: domain,
		Logic:  normalizeName(b.logic),
		Params: canon,
		Output: b.dtype,
		Deps:   make([]string, len(b.deps)),
	}
	for i, d := range b.deps {
		id.Deps[i] = d.key
	}
	key := id.Key()

	if e, ok := r.entries[key]; ok {
		e.refs++
		return e.term, nil
	}

	// Validated: domain support and logic initialisation.
	if err := r.validator.ValidateDomain(domain); err != nil {
		return nil, wrapConstruction(b.logic, err)
	}
	factory, err := LookupLogic(b.logic)
	if err != nil {
		return nil, wrapConstruction(b.logic, err)
	}
	impl, err := factory(b.params.clone())
	if err != nil {
		return nil, wrapConstruction(b.logic, err)
	}
	if impl == nil {
		return nil, constructionErr("%s: factory returned no logic", b.logic)
	}
	if impl.Window() < 0 {
		return nil, constructionErr("%s: negative window %d", b.logic, impl.Window())
	}

	// Ready.
	t := &Term{
		reg:    r,
		key:    key,
		domain: domain,
		logic:  id.Logic,
		impl:   impl,
		params: b.params.clone(),
		dtype:  b.dtype,
		deps:   append([]*Term(nil), b.deps...),
	}
	r.entries[key] = &entry{term: t, refs: 1}
	for _, d := range t.deps {
		r.entries[d.key].refs++
	}
	return t, nil
}
