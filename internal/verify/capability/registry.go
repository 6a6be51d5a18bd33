// Package capability implements the information-flow / capability verifier
// (spec §4.5): a taint-tracking pass over each contract body driven by a
// type registry of per-field and whole-type labels.
package capability

import (
	"strings"

	"github.com/covenant-lang/covenant/internal/ast"
)

// TypeInfo is the registry entry for one type definition: its per-field
// label sets, its union (whole-type) label set, its never_flows_to
// destinations, and its requires_context tag (empty if none).
type TypeInfo struct {
	Name            string
	FieldLabels     map[string][]string
	UnionLabels     []string
	NeverFlowsTo    []string
	RequiresContext string
}

// Registry indexes type definitions for O(1) lookup by name and by label.
type Registry struct {
	types       map[string]*TypeInfo
	labelToType map[string][]*TypeInfo // reverse index: label -> types carrying it
}

// BuildRegistry constructs a Registry from every type definition in program.
func BuildRegistry(program *ast.Program) *Registry {
	r := &Registry{types: map[string]*TypeInfo{}, labelToType: map[string][]*TypeInfo{}}
	for _, td := range program.Types {
		info := &TypeInfo{Name: td.Name, FieldLabels: map[string][]string{}}
		labelSet := map[string]bool{}
		for _, f := range td.Fields {
			labels := ast.Labels(f.Type)
			if len(labels) > 0 {
				info.FieldLabels[f.Name] = labels
				for _, l := range labels {
					labelSet[l] = true
				}
			}
		}
		for l := range labelSet {
			info.UnionLabels = append(info.UnionLabels, l)
		}
		for _, fc := range td.FlowConstraints {
			switch v := fc.(type) {
			case ast.NeverFlowsTo:
				info.NeverFlowsTo = append(info.NeverFlowsTo, v.Destinations...)
			case ast.RequiresContext:
				info.RequiresContext = v.Context
			}
		}
		r.types[td.Name] = info
	}
	for _, info := range r.types {
		for _, l := range info.UnionLabels {
			r.labelToType[l] = append(r.labelToType[l], info)
		}
	}
	return r
}

// TypesWithLabel returns every registered type that ever carries label l.
func (r *Registry) TypesWithLabel(l string) []*TypeInfo {
	return r.labelToType[l]
}

// Lookup returns the TypeInfo for name, or nil if unregistered.
func (r *Registry) Lookup(name string) *TypeInfo {
	return r.types[name]
}

// matchesDestination reports whether dest matches call by exact equality,
// prefix (dest. is a prefix of call), or dotted-segment membership — the
// shared matcher used by F001 and F002 (§4.5).
func matchesDestination(dest, call string) bool {
	if dest == call {
		return true
	}
	if strings.HasPrefix(call, dest+".") {
		return true
	}
	callSegs := strings.Split(call, ".")
	for _, seg := range callSegs {
		if seg == dest {
			return true
		}
	}
	return false
}
