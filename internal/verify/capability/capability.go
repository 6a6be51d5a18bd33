package capability

import (
	"strings"
	"unicode"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/diagnostic"
	"github.com/covenant-lang/covenant/internal/fingerprint"
)

type env map[string][]string

func (e env) merge(name string, labels []string) {
	if len(labels) == 0 {
		return
	}
	existing := map[string]bool{}
	for _, l := range e[name] {
		existing[l] = true
	}
	for _, l := range labels {
		if !existing[l] {
			e[name] = append(e[name], l)
			existing[l] = true
		}
	}
}

// localTypes maps a local's name to its declared base type name, so field
// access on a typed parameter can resolve per-field labels rather than
// falling back to the object's whole-value label set.
type localTypes map[string]string

// Check runs the taint-tracking pass and F001-F006 checks over one contract.
func Check(bag *diagnostic.Bag, program *ast.Program, contract *ast.ContractDef, reg *Registry, fp fingerprint.Fingerprint) {
	e := env{}
	lt := localTypes{}
	for _, p := range contract.Params {
		baseName := ast.BaseName(p.Type)
		lt[p.Name] = baseName
		if base := reg.Lookup(baseName); base != nil {
			e.merge(p.Name, base.UnionLabels)
		}
		if labels := ast.Labels(p.Type); len(labels) > 0 {
			e.merge(p.Name, labels)
		}
	}

	walkBody(bag, contract, reg, e, lt, contract.Body)

	checkDenies(bag, contract, fp)
	checkGrantsCoverage(bag, contract, fp)
	checkRequiresContext(bag, program, contract, reg)
	checkHasRequires(bag, contract)
	checkGrantsDeniesOverlap(bag, contract)
}

func walkBody(bag *diagnostic.Bag, c *ast.ContractDef, reg *Registry, e env, lt localTypes, stmts []ast.Stmt) {
	for _, s := range stmts {
		switch v := s.(type) {
		case ast.AssignStmt:
			labels := labelsOf(v.Value, reg, e, lt)
			e.merge(v.Target.Root, labels)
			flowCheck(bag, c, reg, e, lt, v.Value)
		case ast.ReturnStmt:
			if v.Value != nil {
				flowCheck(bag, c, reg, e, lt, v.Value)
			}
		case ast.EmitStmt:
			for _, a := range v.Args {
				flowCheck(bag, c, reg, e, lt, a)
			}
		case ast.ExprStmt:
			flowCheck(bag, c, reg, e, lt, v.Expr)
		case ast.IfStmt:
			flowCheck(bag, c, reg, e, lt, v.Cond)
			walkBody(bag, c, reg, e, lt, v.Then)
			walkBody(bag, c, reg, e, lt, v.Else)
		case ast.ForInStmt:
			iterLabels := labelsOf(v.Iter, reg, e, lt)
			e.merge(v.Var, iterLabels)
			flowCheck(bag, c, reg, e, lt, v.Iter)
			walkBody(bag, c, reg, e, lt, v.Body)
		case ast.WhileStmt:
			flowCheck(bag, c, reg, e, lt, v.Cond)
			walkBody(bag, c, reg, e, lt, v.Body)
		case ast.TryStmt:
			walkBody(bag, c, reg, e, lt, v.Try)
			walkBody(bag, c, reg, e, lt, v.Catch)
			walkBody(bag, c, reg, e, lt, v.Finally)
		}
	}
}

// fieldOwnerType resolves the registered TypeInfo of a field-access
// object when that object is a local with a known declared type.
func fieldOwnerType(object ast.Expr, reg *Registry, lt localTypes) *TypeInfo {
	id, ok := object.(ast.Identifier)
	if !ok {
		return nil
	}
	typeName, ok := lt[id.Name]
	if !ok {
		return nil
	}
	return reg.Lookup(typeName)
}

// labelsOf computes the label set carried by an expression per §4.5's
// label-computation rules.
func labelsOf(expr ast.Expr, reg *Registry, e env, lt localTypes) []string {
	switch v := expr.(type) {
	case ast.Identifier:
		return e[v.Name]
	case ast.FieldAccessExpr:
		if info := fieldOwnerType(v.Object, reg, lt); info != nil {
			if fl, ok := info.FieldLabels[v.Field]; ok {
				return fl
			}
		}
		return labelsOf(v.Object, reg, e, lt)
	case ast.CallExpr:
		var out []string
		for _, a := range v.Args {
			out = append(out, labelsOf(a.Value, reg, e, lt)...)
		}
		return out
	case ast.MethodCallExpr:
		out := labelsOf(v.Object, reg, e, lt)
		for _, a := range v.Args {
			out = append(out, labelsOf(a.Value, reg, e, lt)...)
		}
		return out
	case ast.BinaryExpr:
		return append(labelsOf(v.Left, reg, e, lt), labelsOf(v.Right, reg, e, lt)...)
	case ast.UnaryExpr:
		return labelsOf(v.Operand, reg, e, lt)
	case ast.OldExpr:
		return labelsOf(v.Inner, reg, e, lt)
	case ast.IndexExpr:
		return labelsOf(v.Object, reg, e, lt)
	default:
		return nil
	}
}

// flowCheck walks every call in expr and checks each against every
// never_flows_to destination of every type carrying one of the call's
// argument/receiver labels (F001).
func flowCheck(bag *diagnostic.Bag, c *ast.ContractDef, reg *Registry, e env, lt localTypes, expr ast.Expr) {
	reported := map[string]bool{}
	ast.WalkExpr(expr, func(sub ast.Expr) {
		var qualified string
		var labels []string
		switch v := sub.(type) {
		case ast.CallExpr:
			if unicode.IsUpper(firstRune(v.Callee)) {
				return
			}
			qualified = v.Callee
			for _, a := range v.Args {
				labels = append(labels, labelsOf(a.Value, reg, e, lt)...)
			}
		case ast.MethodCallExpr:
			if p := ast.DottedPath(v.Object); p != "" {
				qualified = p + "." + v.Method
			} else {
				qualified = v.Method
			}
			labels = append(labels, labelsOf(v.Object, reg, e, lt)...)
			for _, a := range v.Args {
				labels = append(labels, labelsOf(a.Value, reg, e, lt)...)
			}
		default:
			return
		}
		for _, l := range dedupe(labels) {
			for _, t := range reg.TypesWithLabel(l) {
				for _, dest := range t.NeverFlowsTo {
					if matchesDestination(dest, qualified) {
						key := t.Name + "|" + qualified + "|" + dest
						if reported[key] {
							continue
						}
						reported[key] = true
						bag.Add(diagnostic.New(diagnostic.SeverityError, "F001", c.Name, sub.Position(),
							"value labeled %q (from type %s) flows to %q, forbidden by never_flows_to %q", l, t.Name, qualified, dest))
					}
				}
			}
		}
	})
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func rootOf(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// checkDenies implements F002: a denied read/write/capability that the
// fingerprint shows was actually exercised.
func checkDenies(bag *diagnostic.Bag, c *ast.ContractDef, fp fingerprint.Fingerprint) {
	if c.Permissions == nil {
		return
	}
	for _, item := range c.Permissions.Denies {
		switch v := item.(type) {
		case ast.ReadPermission:
			if touchedAsDotted(v.Path, fp.Reads) || touchedAsDotted(v.Path, fp.Mutations) {
				bag.Add(diagnostic.New(diagnostic.SeverityError, "F002", c.Name, v.Pos,
					"denied read(%s) is exercised by the body", v.Path))
			}
		case ast.WritePermission:
			if touchedAsDotted(v.Path, fp.Mutations) {
				bag.Add(diagnostic.New(diagnostic.SeverityError, "F002", c.Name, v.Pos,
					"denied write(%s) is exercised by the body", v.Path))
			}
		case ast.CapabilityToken:
			for _, call := range fp.Calls {
				if matchesDestination(v.Name, call) {
					bag.Add(diagnostic.New(diagnostic.SeverityError, "F002", c.Name, v.Pos,
						"denied capability %q matches called name %q", v.Name, call))
					break
				}
			}
		}
	}
}

func touchedAsDotted(path string, set []string) bool {
	for _, s := range set {
		if s == path || strings.HasPrefix(s, path+".") || strings.HasPrefix(path, s+".") {
			return true
		}
	}
	return false
}

// checkGrantsCoverage implements F003: every parameter-rooted dotted read
// must be covered by a read(...) grant (prefix match either way). Local
// reads (roots that are not parameters) are not checked.
func checkGrantsCoverage(bag *diagnostic.Bag, c *ast.ContractDef, fp fingerprint.Fingerprint) {
	if c.Permissions == nil || len(c.Permissions.Grants) == 0 {
		return
	}
	params := map[string]bool{}
	for _, p := range c.Params {
		params[p.Name] = true
	}
	var grantedReads []string
	for _, g := range c.Permissions.Grants {
		if rp, ok := g.(ast.ReadPermission); ok {
			grantedReads = append(grantedReads, rp.Path)
		}
	}
	for _, r := range fp.Reads {
		if !strings.Contains(r, ".") || !params[rootOf(r)] {
			continue
		}
		covered := false
		for _, g := range grantedReads {
			if r == g || strings.HasPrefix(r, g+".") || strings.HasPrefix(g, r+".") {
				covered = true
				break
			}
		}
		if !covered {
			bag.Add(diagnostic.New(diagnostic.SeverityWarning, "F003", c.Name, c.Pos,
				"parameter-rooted read %q is not covered by any read(...) grant", r))
		}
	}
}

// checkRequiresContext implements F004: a parameter whose type declares
// requires_context ctx, when the file scope's dot-separated segments do not
// intersect ctx's underscore-separated components.
func checkRequiresContext(bag *diagnostic.Bag, program *ast.Program, c *ast.ContractDef, reg *Registry) {
	if program.Header == nil || program.Header.Scope == "" {
		return
	}
	scopeSegs := map[string]bool{}
	for _, seg := range strings.Split(program.Header.Scope, ".") {
		scopeSegs[seg] = true
	}
	for _, p := range c.Params {
		info := reg.Lookup(ast.BaseName(p.Type))
		if info == nil || info.RequiresContext == "" {
			continue
		}
		satisfied := false
		for _, comp := range strings.Split(info.RequiresContext, "_") {
			if scopeSegs[comp] {
				satisfied = true
				break
			}
		}
		if !satisfied {
			bag.Add(diagnostic.New(diagnostic.SeverityError, "F004", c.Name, c.Pos,
				"parameter %q has type %s requiring context %q, not satisfied by scope %q",
				p.Name, info.Name, info.RequiresContext, program.Header.Scope))
		}
	}
}

// checkHasRequires implements F005: a `has`-check whose target root is not
// among the contract's declared permission grants (capability tokens) nor
// a parameter name.
func checkHasRequires(bag *diagnostic.Bag, c *ast.ContractDef) {
	declared := map[string]bool{}
	if c.Permissions != nil {
		for _, g := range c.Permissions.Grants {
			if ct, ok := g.(ast.CapabilityToken); ok {
				declared[rootOf(ct.Name)] = true
			}
		}
	}
	for _, p := range c.Params {
		declared[p.Name] = true
	}
	checkExprs := func(exprs []ast.Expr) {
		for _, ex := range exprs {
			ast.WalkExpr(ex, func(sub ast.Expr) {
				hc, ok := sub.(ast.HasCapabilityExpr)
				if !ok {
					return
				}
				if !declared[rootOf(hc.Capability)] {
					bag.Add(diagnostic.New(diagnostic.SeverityWarning, "F005", c.Name, hc.Pos,
						"has-check %q target root is not in declared permission grants", hc.Capability))
				}
			})
		}
	}
	checkExprs(c.Precondition)
	checkExprs(c.Postcondition)
}

// checkGrantsDeniesOverlap implements F006: a grants entry and a denies
// entry describing the same access.
func checkGrantsDeniesOverlap(bag *diagnostic.Bag, c *ast.ContractDef) {
	if c.Permissions == nil {
		return
	}
	for _, g := range c.Permissions.Grants {
		for _, d := range c.Permissions.Denies {
			if samePermissionKind(g, d) {
				bag.Add(diagnostic.New(diagnostic.SeverityWarning, "F006", c.Name, c.Permissions.Pos,
					"grants and denies both describe %s", describePermission(g)))
			}
		}
	}
}

func samePermissionKind(a, b ast.PermissionItem) bool {
	switch av := a.(type) {
	case ast.ReadPermission:
		bv, ok := b.(ast.ReadPermission)
		return ok && av.Path == bv.Path
	case ast.WritePermission:
		bv, ok := b.(ast.WritePermission)
		return ok && av.Path == bv.Path
	case ast.CapabilityToken:
		bv, ok := b.(ast.CapabilityToken)
		return ok && av.Name == bv.Name
	}
	return false
}

func describePermission(p ast.PermissionItem) string {
	switch v := p.(type) {
	case ast.ReadPermission:
		return "read(" + v.Path + ")"
	case ast.WritePermission:
		return "write(" + v.Path + ")"
	case ast.CapabilityToken:
		return v.Name
	}
	return ""
}
