package reports

import (
	"fmt"
	"strings"
)

type Dimension string

const (
	DimYear     Dimension = "year"
	DimMonth    Dimension = "month"
	DimDay      Dimension = "day"
	DimProduct  Dimension = "product"
	DimCustomer Dimension = "customer"
	DimCategory Dimension = "category"
	DimSource   Dimension = "source"
	DimSupplier Dimension = "supplier"
)

func (d Dimension) isTime() bool {
	return d == DimYear || d == DimMonth || d == DimDay
}

// Endpoint names a sales report: the totals report or one keyed by an entity dimension.
type Endpoint string

const (
	EndpointTotal    Endpoint = "total"
	EndpointProduct  Endpoint = Endpoint(DimProduct)
	EndpointCustomer Endpoint = Endpoint(DimCustomer)
	EndpointCategory Endpoint = Endpoint(DimCategory)
	EndpointSource   Endpoint = Endpoint(DimSource)
	EndpointSupplier Endpoint = Endpoint(DimSupplier)
)

var timeDims = []Dimension{DimYear, DimMonth, DimDay}

var allowedDims = map[Endpoint][]Dimension{
	EndpointTotal:    timeDims,
	EndpointProduct:  append([]Dimension{DimProduct, DimCustomer}, timeDims...),
	EndpointCustomer: append([]Dimension{DimCustomer, DimProduct}, timeDims...),
	EndpointCategory: append([]Dimension{DimCategory, DimProduct}, timeDims...),
	EndpointSource:   append([]Dimension{DimSource, DimProduct}, timeDims...),
	EndpointSupplier: append([]Dimension{DimSupplier, DimProduct}, timeDims...),
}

// ParseEndpoint maps a URL segment onto a dimension endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	e := Endpoint(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := allowedDims[e]; !ok || e == EndpointTotal {
		return "", fmt.Errorf("%w: unknown report dimension %q", ErrInvalidGroupBy, s)
	}
	return e, nil
}

// ResolveGroupBy validates the requested dimensions for an endpoint and fills defaults.
func ResolveGroupBy(endpoint Endpoint, requested []string, kind FilterKind, ids []int) ([]Dimension, error) {
	allowed, ok := allowedDims[endpoint]
	if !ok {
		return nil, fmt.Errorf("%w: unknown endpoint %q", ErrInvalidGroupBy, endpoint)
	}

	dims := make([]Dimension, 0, len(requested)+1)
	seen := make(map[Dimension]bool, len(requested)+1)
	for _, raw := range requested {
		d := Dimension(strings.ToLower(strings.TrimSpace(raw)))
		if !containsDim(allowed, d) {
			return nil, fmt.Errorf("%w: %q is not allowed for %s", ErrInvalidGroupBy, raw, endpoint)
		}
		if seen[d] {
			return nil, fmt.Errorf("%w: %q repeated", ErrInvalidGroupBy, raw)
		}
		seen[d] = true
		dims = append(dims, d)
	}

	if len(dims) == 0 {
		if kind == FilterYearMonth {
			dims = append(dims, DimDay)
		} else {
			dims = append(dims, DimYear, DimMonth)
		}
		for _, d := range dims {
			seen[d] = true
		}
	}
	if endpoint != EndpointTotal && !seen[Dimension(endpoint)] {
		dims = append(dims, Dimension(endpoint))
		seen[Dimension(endpoint)] = true
	}

	if seen[DimCustomer] && len(ids) == 0 {
		return nil, fmt.Errorf("%w: grouping by customer needs ids", ErrInvalidGroupBy)
	}
	if seen[DimDay] && !seen[DimMonth] && kind != FilterYearMonth {
		return nil, fmt.Errorf("%w: day needs month unless filtering a single month", ErrInvalidGroupBy)
	}
	if seen[DimMonth] && kind == FilterYearMonth {
		return nil, fmt.Errorf("%w: month is fixed by the filter", ErrInvalidGroupBy)
	}
	return dims, nil
}

func containsDim(dims []Dimension, d Dimension) bool {
	for _, x := range dims {
		if x == d {
			return true
		}
	}
	return false
}

func dimsKey(dims []Dimension) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}
