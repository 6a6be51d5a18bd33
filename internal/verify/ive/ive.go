// Package ive implements the intent/effects consistency checker (spec §4.4):
// structural checks, effect completeness, relevance checks, and scope
// declaration checks, each producing a stable-coded diagnostic.
package ive

import (
	"strings"
	"unicode"

	"github.com/covenant-lang/covenant/internal/ast"
	"github.com/covenant-lang/covenant/internal/diagnostic"
	"github.com/covenant-lang/covenant/internal/fingerprint"
)

// Bridge supplies the externally-registered stdlib module-name set the
// touches_nothing_else check needs (§6.2); the checker never hard-codes
// module names.
type Bridge interface {
	IsStdlibModule(name string) bool
}

// BuiltinNames is the always-present builtin-function set (§6.3, plus the
// supplemented bool/list conversions) consulted by the touches_nothing_else
// allowed-roots check.
var BuiltinNames = map[string]bool{
	"print": true, "len": true, "abs": true, "min": true, "max": true,
	"range": true, "str": true, "int": true, "float": true, "type": true,
	"bool": true, "list": true,
}

// Check runs every IVE check against one contract and appends diagnostics
// to bag. program supplies the file header and sibling contracts.
func Check(bag *diagnostic.Bag, program *ast.Program, contract *ast.ContractDef, fp fingerprint.Fingerprint, bridge Bridge) {
	checkStructural(bag, contract, fp)
	if program.Header != nil {
		checkHighRiskSections(bag, contract, program.Header.Risk)
	}
	checkEffectCompleteness(bag, program, contract, fp, bridge)
	checkRelevance(bag, program, contract, fp)
	checkInfo(bag, contract, fp)
	// The file-level scope checks run once, alongside the file's first contract.
	if len(program.Contracts) > 0 && contract == &program.Contracts[0] {
		checkScope(bag, program)
	}
}

func add(bag *diagnostic.Bag, sev diagnostic.Severity, code, contract string, pos ast.Position, format string, args ...interface{}) {
	bag.Add(diagnostic.New(sev, code, contract, pos, format, args...))
}

// ---------------------------------------------------------------------
// Structural checks
// ---------------------------------------------------------------------

func checkStructural(bag *diagnostic.Bag, c *ast.ContractDef, fp fingerprint.Fingerprint) {
	if !c.HasBody() {
		add(bag, diagnostic.SeverityError, "E004", c.Name, c.Pos, "contract %q declares no body", c.Name)
		return
	}

	hasSideEffects := len(fp.Mutations) > 0 || len(fp.EmittedEvents) > 0
	sealed := c.Pure || hasTouchesNothingElse(c.Effects)
	if hasSideEffects && len(c.Effects) == 0 && !sealed {
		add(bag, diagnostic.SeverityError, "W005", c.Name, c.Pos,
			"contract %q has side effects but declares no effects block; suggested fix:\n  effects:\n    modifies %v\n    emits %v",
			c.Name, fp.Mutations, fp.EmittedEvents)
	}
}

// checkHighRiskSections is invoked from Check via the caller's risk level
// (the header is a program-level concept; risk elevation is applied here
// rather than in checkStructural so risk can be threaded explicitly).
func checkHighRiskSections(bag *diagnostic.Bag, c *ast.ContractDef, risk ast.RiskLevel) {
	if !risk.IsHighOrCritical() {
		return
	}
	if c.Precondition == nil {
		add(bag, diagnostic.SeverityError, "W003", c.Name, c.Pos, "high/critical-risk contract %q declares no precondition", c.Name)
	}
	if c.Postcondition == nil {
		add(bag, diagnostic.SeverityError, "W004", c.Name, c.Pos, "high/critical-risk contract %q declares no postcondition", c.Name)
	}
	if c.Effects == nil {
		add(bag, diagnostic.SeverityError, "W005", c.Name, c.Pos, "high/critical-risk contract %q declares no effects block", c.Name)
	}
}

func hasTouchesNothingElse(effects []ast.EffectDecl) bool {
	for _, e := range effects {
		if _, ok := e.(ast.TouchesNothingElseEffect); ok {
			return true
		}
	}
	return false
}

func modifiesTargets(effects []ast.EffectDecl) []string {
	var out []string
	for _, e := range effects {
		if m, ok := e.(ast.ModifiesEffect); ok {
			out = append(out, m.Targets...)
		}
	}
	return out
}

func readsTargets(effects []ast.EffectDecl) []string {
	var out []string
	for _, e := range effects {
		if r, ok := e.(ast.ReadsEffect); ok {
			out = append(out, r.Targets...)
		}
	}
	return out
}

func emitsEvents(effects []ast.EffectDecl) []string {
	var out []string
	for _, e := range effects {
		if em, ok := e.(ast.EmitsEffect); ok {
			out = append(out, em.Event)
		}
	}
	return out
}

// covered reports whether mutation m is accounted for by declared target d:
// exact match, prefix match (d. is a prefix of m), or m is a bare local
// identifier (no dot).
func covered(declared []string, m string) bool {
	if !strings.Contains(m, ".") {
		return true
	}
	for _, d := range declared {
		if d == m || strings.HasPrefix(m, d+".") {
			return true
		}
	}
	return false
}

func rootOf(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// ---------------------------------------------------------------------
// Effect completeness
// ---------------------------------------------------------------------

func checkEffectCompleteness(bag *diagnostic.Bag, program *ast.Program, c *ast.ContractDef, fp fingerprint.Fingerprint, bridge Bridge) {
	declaredModifies := modifiesTargets(c.Effects)
	sealed := hasTouchesNothingElse(c.Effects)

	for _, m := range fp.Mutations {
		if covered(declaredModifies, m) {
			continue
		}
		if sealed {
			add(bag, diagnostic.SeverityError, "E002", c.Name, c.Pos, "mutation of %q is not declared in modifies and touches_nothing_else is set", m)
		} else {
			add(bag, diagnostic.SeverityWarning, "E001", c.Name, c.Pos, "mutation of %q is not declared in modifies", m)
		}
	}

	for _, d := range declaredModifies {
		if observedOrCalled(d, fp) {
			continue
		}
		add(bag, diagnostic.SeverityWarning, "W001", c.Name, c.Pos, "declared modifies target %q is never observed in the body nor covered by a matching call", d)
	}

	declaredEmits := emitsEvents(c.Effects)
	for _, e := range fp.EmittedEvents {
		if !containsStr(declaredEmits, e) {
			add(bag, diagnostic.SeverityError, "E005", c.Name, c.Pos, "event %q is emitted but not declared in effects", e)
		}
	}
	for _, e := range declaredEmits {
		if !containsStr(fp.EmittedEvents, e) {
			add(bag, diagnostic.SeverityWarning, "W002", c.Name, c.Pos, "event %q is declared in effects but never emitted", e)
		}
	}

	if sealed {
		allowed := allowedRoots(program, c, bridge)
		for _, call := range fp.Calls {
			root := rootOf(call)
			if unicode.IsUpper(firstRune(root)) {
				continue // constructor
			}
			if !allowed[root] {
				add(bag, diagnostic.SeverityError, "E003", c.Name, c.Pos, "call to %q is outside the sealed touches_nothing_else allowed-roots set", call)
			}
		}
	}
}

// observedOrCalled reports whether declared target d appears as a mutation
// (exact or as a prefix relationship) or is covered by a call whose root
// matches d's root (the ledger.transfer(from, amount) heuristic, §4.4).
func observedOrCalled(d string, fp fingerprint.Fingerprint) bool {
	for _, m := range fp.Mutations {
		if m == d || strings.HasPrefix(m, d+".") || strings.HasPrefix(d, m+".") {
			return true
		}
	}
	root := rootOf(d)
	for _, call := range fp.Calls {
		if rootOf(call) == root {
			return true
		}
	}
	return false
}

func allowedRoots(program *ast.Program, c *ast.ContractDef, bridge Bridge) map[string]bool {
	allowed := map[string]bool{}
	for _, p := range c.Params {
		allowed[p.Name] = true
	}
	for _, m := range modifiesTargets(c.Effects) {
		allowed[rootOf(m)] = true
	}
	for _, r := range readsTargets(c.Effects) {
		allowed[rootOf(r)] = true
	}
	if program.Header != nil {
		for _, cap := range program.Header.RequiredCapabilities {
			allowed[rootOf(cap)] = true
		}
	}
	for name := range BuiltinNames {
		allowed[name] = true
	}
	for _, sib := range program.Contracts {
		allowed[sib.Name] = true
	}
	if bridge != nil {
		for _, call := range collectAllCallRoots(c) {
			if bridge.IsStdlibModule(call) {
				allowed[call] = true
			}
		}
	}
	return allowed
}

func collectAllCallRoots(c *ast.ContractDef) []string {
	var roots []string
	seen := map[string]bool{}
	ast.WalkStmts(c.Body, 0, func(s ast.Stmt, _ int) {
		var e ast.Expr
		switch v := s.(type) {
		case ast.ExprStmt:
			e = v.Expr
		case ast.AssignStmt:
			e = v.Value
		case ast.ReturnStmt:
			e = v.Value
		}
		if e == nil {
			return
		}
		ast.WalkExpr(e, func(sub ast.Expr) {
			if mc, ok := sub.(ast.MethodCallExpr); ok {
				if root := ast.Root(mc.Object); root != "" && !seen[root] {
					seen[root] = true
					roots = append(roots, root)
				}
			}
		})
	})
	return roots
}

func containsStr(hay []string, needle string) bool {
	for _, h := range hay {
		if h == needle {
			return true
		}
	}
	return false
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// ---------------------------------------------------------------------
// Relevance checks
// ---------------------------------------------------------------------

func checkRelevance(bag *diagnostic.Bag, program *ast.Program, c *ast.ContractDef, fp fingerprint.Fingerprint) {
	paramNames := map[string]bool{}
	for _, p := range c.Params {
		paramNames[p.Name] = true
	}
	bodyIdents := map[string]bool{}
	for _, r := range fp.Reads {
		bodyIdents[rootOf(r)] = true
	}
	for _, m := range fp.Mutations {
		bodyIdents[rootOf(m)] = true
	}

	for _, pre := range c.Precondition {
		ast.WalkExpr(pre, func(sub ast.Expr) {
			if id, ok := sub.(ast.Identifier); ok {
				if !paramNames[id.Name] && !bodyIdents[id.Name] {
					add(bag, diagnostic.SeverityWarning, "W006", c.Name, pre.Position(),
						"precondition reads %q, which is neither a parameter nor a body identifier", id.Name)
				}
			}
		})
	}

	for _, post := range c.Postcondition {
		ast.WalkExpr(post, func(sub ast.Expr) {
			old, ok := sub.(ast.OldExpr)
			if !ok {
				return
			}
			p := ast.DottedPath(old.Inner)
			if p == "" {
				return
			}
			if !observedOrCalled(p, fp) {
				add(bag, diagnostic.SeverityWarning, "W007", c.Name, old.Pos,
					"postcondition references old(%s), which is neither mutated nor reached by a matching call", p)
			}
		})
		ast.WalkExpr(post, func(sub ast.Expr) {
			hc, ok := sub.(ast.HasCapabilityExpr)
			if !ok {
				return
			}
			checkHasCapabilityRoot(bag, program, c, hc)
		})
	}

	ast.WalkStmts(c.Body, 0, func(s ast.Stmt, _ int) {
		var e ast.Expr
		switch v := s.(type) {
		case ast.ExprStmt:
			e = v.Expr
		case ast.IfStmt:
			e = v.Cond
		case ast.WhileStmt:
			e = v.Cond
		}
		if e == nil {
			return
		}
		ast.WalkExpr(e, func(sub ast.Expr) {
			if hc, ok := sub.(ast.HasCapabilityExpr); ok {
				checkHasCapabilityRoot(bag, program, c, hc)
			}
		})
	})
}

func checkHasCapabilityRoot(bag *diagnostic.Bag, program *ast.Program, c *ast.ContractDef, hc ast.HasCapabilityExpr) {
	root := rootOf(hc.Capability)
	if program.Header != nil && containsStr(program.Header.RequiredCapabilities, root) {
		return
	}
	for _, p := range c.Params {
		if p.Name == root {
			return
		}
	}
	add(bag, diagnostic.SeverityWarning, "W008", c.Name, hc.Pos,
		"capability %q is checked but its root is not in required_capabilities nor a parameter", hc.Capability)
}

// ---------------------------------------------------------------------
// Info checks
// ---------------------------------------------------------------------

func checkInfo(bag *diagnostic.Bag, c *ast.ContractDef, fp fingerprint.Fingerprint) {
	if fp.HasRecursion {
		add(bag, diagnostic.SeverityInfo, "I001", c.Name, c.Pos, "contract %q is recursive", c.Name)
	}
	if fp.MaxNestingDepth >= 4 {
		add(bag, diagnostic.SeverityInfo, "I002", c.Name, c.Pos, "contract %q nests %d levels deep", c.Name, fp.MaxNestingDepth)
	}
}

// ---------------------------------------------------------------------
// Scope declaration checks (program-level, run once per file)
// ---------------------------------------------------------------------

func checkScope(bag *diagnostic.Bag, program *ast.Program) {
	if program.Header == nil || program.Header.Scope == "" {
		pos := ast.Position{}
		if program.Header != nil {
			pos = program.Header.Pos
		}
		add(bag, diagnostic.SeverityError, "S001", "(file)", pos, "file declares no scope")
		return
	}
	h := program.Header
	segments := strings.Split(h.Scope, ".")
	invalid := len(segments) < 2
	for _, seg := range segments {
		if seg == "" || !isLowerSegment(seg) {
			invalid = true
		}
	}
	if invalid {
		add(bag, diagnostic.SeverityError, "S002", "(file)", h.Pos, "scope %q must have at least two lowercase, non-empty segments", h.Scope)
		return
	}
	if len(h.Intent) > 10 {
		for _, seg := range segments {
			if !strings.Contains(strings.ToLower(h.Intent), seg) {
				add(bag, diagnostic.SeverityWarning, "S003", "(file)", h.Pos,
					"scope segment %q does not appear in the intent text", seg)
			}
		}
	}
}

// CheckUseDecls runs the supplemented W009 check once per program: a `use`
// declaration whose path matches neither a known stdlib module nor a type
// defined in the same file is almost certainly a typo or stale import.
func CheckUseDecls(bag *diagnostic.Bag, program *ast.Program, bridge Bridge) {
	typeNames := map[string]bool{}
	for _, t := range program.Types {
		typeNames[t.Name] = true
	}
	for _, u := range program.Uses {
		if bridge != nil && bridge.IsStdlibModule(u.Path) {
			continue
		}
		if typeNames[rootOf(lastSegment(u.Path))] || typeNames[lastSegment(u.Path)] {
			continue
		}
		add(bag, diagnostic.SeverityWarning, "W009", "(file)", u.Pos, "unresolved use declaration %q", u.Path)
	}
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

func isLowerSegment(seg string) bool {
	for _, r := range seg {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
