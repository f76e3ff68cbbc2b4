package godbf

import (
	"fmt"
	"reflect"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultRegistrySize = 128

type planKey struct {
	schema string
	shape  reflect.Type
}

// PlanRegistry caches record plans by schema and shape, so tables sharing a
// layout bind each record type once.
type PlanRegistry struct {
	plans *lru.Cache[planKey, *RecordPlan]
}

// NewPlanRegistry returns a registry holding at most size plans.
func NewPlanRegistry(size int) (*PlanRegistry, error) {
	plans, err := lru.New[planKey, *RecordPlan](size)
	if err != nil {
		return nil, err
	}
	return &PlanRegistry{plans: plans}, nil
}

// Bind returns the cached plan for shape over fields, binding it on a miss.
func (r *PlanRegistry) Bind(fields []FieldDescriptor, shape any) (*RecordPlan, error) {
	key := planKey{schema: schemaKey(fields), shape: reflect.TypeOf(shape)}
	if p, ok := r.plans.Get(key); ok {
		return p, nil
	}
	p, err := Bind(fields, shape)
	if err != nil {
		return nil, err
	}
	r.plans.Add(key, p)
	return p, nil
}

// Len returns the number of cached plans.
func (r *PlanRegistry) Len() int { return r.plans.Len() }

// Purge drops every cached plan.
func (r *PlanRegistry) Purge() { r.plans.Purge() }

func schemaKey(fields []FieldDescriptor) string {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%s:%c:%d:%d:%d:%d;", strings.ToUpper(f.Name), byte(f.Type), f.Length, f.Decimals, f.Flags, f.Offset)
	}
	return b.String()
}
