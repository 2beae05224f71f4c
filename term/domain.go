package term

import "strings"

// Domain scopes the calendar and instrument universe a term is valid for.
type Domain string

// GenericDomain is compatible with every other domain.
const GenericDomain Domain = "GENERIC"

// InferDomain reads the "domain" param (case-insensitive). Terms without one
// are generic.
func InferDomain(p Params) Domain {
	s, err := p.String("domain", "")
	if err != nil || strings.TrimSpace(s) == "" {
		return GenericDomain
	}
	return Domain(strings.ToUpper(strings.TrimSpace(s)))
}

// DomainValidator rejects domains a data source cannot serve.
type DomainValidator interface {
	ValidateDomain(d Domain) error
}

// NopDomainValidator accepts every domain.
type NopDomainValidator struct{}

func (NopDomainValidator) ValidateDomain(Domain) error { return nil }

// resolveDomain picks the domain of a term from its own params and its
// dependencies. Two different specific domains cannot be combined.
func resolveDomain(own Domain, deps []*Term) (Domain, error) {
	d := own
	for _, dep := range deps {
		dd := dep.domain
		if dd == GenericDomain {
			continue
		}
		if d == GenericDomain {
			d = dd
			continue
		}
		if d != dd {
			return "", constructionErr("domain %s conflicts with dependency %s in domain %s", d, dep.logic, dd)
		}
	}
	return d, nil
}
