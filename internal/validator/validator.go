// Package validator statically analyses candidate pathfinding sources
// against the entry-point contract expected by the sandbox:
//
//	package main
//	func FindPath(grid [][]int, start, end [2]int) [][2]int
//	func VisitedOrder() [][2]int
//
// Analysis is AST-based rather than text matching: substring heuristics
// cannot tell a wall check in a comment from one in a condition.
package validator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"strconv"

	"github.com/example/pathforge/internal/models"
)

const (
	findPathName     = "FindPath"
	visitedOrderName = "VisitedOrder"

	findPathSig     = "func FindPath(grid [][]int, start, end [2]int) [][2]int"
	visitedOrderSig = "func VisitedOrder() [][2]int"

	errorPenalty      = 25
	warningPenalty    = 10
	suggestionPenalty = 2
)

// Validate analyses a candidate source text and returns a scored report.
// It is a pure function of the text: the candidate is never executed.
func Validate(source string) models.ValidationReport {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", source, parser.ParseComments)
	if err != nil {
		return parseFailureReport(err)
	}

	var findings []models.Finding

	if file.Name.Name != "main" {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    fmt.Sprintf("candidate must declare package main, found package %s", file.Name.Name),
			Line:       fset.Position(file.Name.Pos()).Line,
			Suggestion: "change the package clause to: package main",
		})
	}

	findPath := topLevelFunc(file, findPathName)
	visitedOrder := topLevelFunc(file, visitedOrderName)

	findings = append(findings, checkEntryPoints(fset, findPath, visitedOrder)...)
	if findPath != nil && findPath.Body != nil {
		findings = append(findings, checkPathLogic(fset, findPath)...)
		findings = append(findings, checkLoops(fset, findPath)...)
		findings = append(findings, checkStyle(fset, findPath, visitedOrder)...)
	}

	return buildReport(findings)
}

// buildReport scores the findings. IsValid is independent of the score: it
// is strictly "no error-level findings".
func buildReport(findings []models.Finding) models.ValidationReport {
	score := 100
	valid := true
	for _, f := range findings {
		switch f.Level {
		case models.LevelError:
			score -= errorPenalty
			valid = false
		case models.LevelWarning:
			score -= warningPenalty
		case models.LevelSuggestion:
			score -= suggestionPenalty
		}
	}
	if score < 0 {
		score = 0
	}
	return models.ValidationReport{Score: score, IsValid: valid, Findings: findings}
}

func parseFailureReport(err error) models.ValidationReport {
	f := models.Finding{
		Level:      models.LevelError,
		Message:    fmt.Sprintf("source does not parse: %v", err),
		Suggestion: "fix the syntax error; the candidate must be a complete Go file",
	}
	if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
		f.Message = fmt.Sprintf("source does not parse: %s", list[0].Msg)
		f.Line = list[0].Pos.Line
	}
	return models.ValidationReport{Score: 0, IsValid: false, Findings: []models.Finding{f}}
}

func topLevelFunc(file *ast.File, name string) *ast.FuncDecl {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && fn.Recv == nil && fn.Name.Name == name {
			return fn
		}
	}
	return nil
}

// checkEntryPoints verifies both required functions exist with the exact
// expected shape. Missing or malformed entry points are structural errors.
func checkEntryPoints(fset *token.FileSet, findPath, visitedOrder *ast.FuncDecl) []models.Finding {
	var findings []models.Finding

	if findPath == nil {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    "missing required entry point FindPath",
			Suggestion: "define: " + findPathSig,
		})
	} else if !matchesFindPath(findPath.Type) {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    "FindPath has the wrong signature: " + funcSignature(findPath),
			Line:       fset.Position(findPath.Pos()).Line,
			Suggestion: "expected: " + findPathSig,
		})
	}

	if visitedOrder == nil {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    "missing required visited-order accessor VisitedOrder",
			Suggestion: "define: " + visitedOrderSig,
		})
	} else if !matchesVisitedOrder(visitedOrder.Type) {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    "VisitedOrder has the wrong signature: " + funcSignature(visitedOrder),
			Line:       fset.Position(visitedOrder.Pos()).Line,
			Suggestion: "expected: " + visitedOrderSig,
		})
	}

	return findings
}

func matchesFindPath(t *ast.FuncType) bool {
	params := flattenParams(t.Params)
	if len(params) != 3 {
		return false
	}
	return typeText(params[0]) == "[][]int" &&
		typeText(params[1]) == "[2]int" &&
		typeText(params[2]) == "[2]int" &&
		singleResult(t) == "[][2]int"
}

func matchesVisitedOrder(t *ast.FuncType) bool {
	return len(flattenParams(t.Params)) == 0 && singleResult(t) == "[][2]int"
}

// flattenParams expands grouped parameters (a, b [2]int) into one type
// expression per declared name.
func flattenParams(fields *ast.FieldList) []ast.Expr {
	if fields == nil {
		return nil
	}
	var out []ast.Expr
	for _, f := range fields.List {
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, f.Type)
		}
	}
	return out
}

func singleResult(t *ast.FuncType) string {
	if t.Results == nil || len(t.Results.List) != 1 || len(t.Results.List[0].Names) > 1 {
		return ""
	}
	return typeText(t.Results.List[0].Type)
}

func typeText(e ast.Expr) string { return types.ExprString(e) }

func funcSignature(fn *ast.FuncDecl) string {
	sig := "func " + fn.Name.Name + "("
	for i, p := range flattenParams(fn.Type.Params) {
		if i > 0 {
			sig += ", "
		}
		sig += typeText(p)
	}
	sig += ")"
	if r := singleResult(fn.Type); r != "" {
		sig += " " + r
	}
	return sig
}

// checkPathLogic inspects the FindPath body for the safety properties the
// sandbox cannot recover from: the grid must actually be consulted, walls
// must be compared against, and indices must be guarded by the grid's
// dimensions. All three are correctness violations, not style issues, so
// their absence is error-level.
func checkPathLogic(fset *token.FileSet, fn *ast.FuncDecl) []models.Finding {
	var findings []models.Finding
	line := fset.Position(fn.Pos()).Line

	gridName := firstParamName(fn)
	if gridName == "" || gridName == "_" {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    "FindPath ignores its grid parameter",
			Line:       line,
			Suggestion: "name the first parameter and consult it before moving",
		})
		return findings
	}

	insp := inspectBody(fn, gridName)

	if !insp.gridRead {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    "FindPath never reads the grid parameter",
			Line:       line,
			Suggestion: "index into " + gridName + " to inspect cells",
		})
		// Without any grid access the remaining checks would only repeat
		// the same defect.
		return findings
	}

	if !insp.wallCheck {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    "no wall check: neighbouring cells are accepted without comparing the grid cell value",
			Line:       line,
			Suggestion: fmt.Sprintf("reject neighbours where %s[ny][nx] == %d before visiting them", gridName, 1),
		})
	}

	if !insp.boundsCheck {
		findings = append(findings, models.Finding{
			Level:      models.LevelError,
			Message:    "no bounds check: coordinates are not guarded against the grid's dimensions",
			Line:       line,
			Suggestion: fmt.Sprintf("guard with 0 <= ny && ny < len(%s) && 0 <= nx && nx < len(%s[0])", gridName, gridName),
		})
	}

	if !insp.emptyReturn {
		findings = append(findings, models.Finding{
			Level:      models.LevelWarning,
			Message:    "FindPath has no explicit no-path return",
			Line:       line,
			Suggestion: "return nil (or an empty slice) when the end is unreachable",
		})
	}

	return findings
}

// bodyFacts accumulates what a single walk of the FindPath body observed.
type bodyFacts struct {
	gridRead    bool
	wallCheck   bool
	boundsCheck bool
	emptyReturn bool
	dimIdents   map[string]bool // idents assigned from len(grid…)
	hasSet      bool            // a map exists somewhere in the body
}

func inspectBody(fn *ast.FuncDecl, gridName string) *bodyFacts {
	insp := &bodyFacts{dimIdents: map[string]bool{}}

	// First pass: record identifiers derived from the grid's dimensions so
	// that `ny < height` counts as a bounds check when height came from
	// len(grid).
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		assign, ok := n.(*ast.AssignStmt)
		if !ok {
			return true
		}
		for i, rhs := range assign.Rhs {
			if i < len(assign.Lhs) && isLenOfGrid(rhs, gridName) {
				if id, ok := assign.Lhs[i].(*ast.Ident); ok {
					insp.dimIdents[id.Name] = true
				}
			}
		}
		return true
	})

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.IndexExpr:
			if rootedAt(node, gridName) {
				insp.gridRead = true
			}
		case *ast.BinaryExpr:
			insp.noteComparison(node, gridName)
		case *ast.ReturnStmt:
			if isEmptyPathReturn(node) {
				insp.emptyReturn = true
			}
		case *ast.MapType:
			insp.hasSet = true
		case *ast.CallExpr:
			// make(map[...]...) without a literal map type declaration
			if id, ok := node.Fun.(*ast.Ident); ok && id.Name == "make" && len(node.Args) > 0 {
				if _, ok := node.Args[0].(*ast.MapType); ok {
					insp.hasSet = true
				}
			}
		}
		return true
	})

	return insp
}

func (b *bodyFacts) noteComparison(expr *ast.BinaryExpr, gridName string) {
	switch expr.Op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
	default:
		return
	}
	for _, side := range []ast.Expr{expr.X, expr.Y} {
		if idx, ok := side.(*ast.IndexExpr); ok && rootedAt(idx, gridName) {
			b.wallCheck = true
		}
		if isLenOfGrid(side, gridName) {
			b.boundsCheck = true
		}
		if id, ok := side.(*ast.Ident); ok && b.dimIdents[id.Name] {
			b.boundsCheck = true
		}
	}
}

// rootedAt reports whether an index expression chain bottoms out at the
// named identifier, e.g. grid[ny][nx] for gridName "grid".
func rootedAt(e ast.Expr, name string) bool {
	for {
		switch v := e.(type) {
		case *ast.IndexExpr:
			e = v.X
		case *ast.Ident:
			return v.Name == name
		default:
			return false
		}
	}
}

func isLenOfGrid(e ast.Expr, gridName string) bool {
	call, ok := e.(*ast.CallExpr)
	if !ok || len(call.Args) != 1 {
		return false
	}
	id, ok := call.Fun.(*ast.Ident)
	if !ok || id.Name != "len" {
		return false
	}
	return rootedAt(call.Args[0], gridName)
}

func isEmptyPathReturn(ret *ast.ReturnStmt) bool {
	if len(ret.Results) != 1 {
		return false
	}
	switch v := ret.Results[0].(type) {
	case *ast.Ident:
		return v.Name == "nil"
	case *ast.CompositeLit:
		return len(v.Elts) == 0
	}
	return false
}

func firstParamName(fn *ast.FuncDecl) string {
	if fn.Type.Params == nil || len(fn.Type.Params.List) == 0 {
		return ""
	}
	first := fn.Type.Params.List[0]
	if len(first.Names) == 0 {
		return ""
	}
	return first.Names[0].Name
}

// checkLoops flags loop constructs whose termination cannot be argued
// statically. This stays a warning: a visited set or counter elsewhere may
// still bound the loop, and proving termination is not the validator's job.
func checkLoops(fset *token.FileSet, fn *ast.FuncDecl) []models.Finding {
	var findings []models.Finding
	insp := inspectBody(fn, firstParamName(fn))

	ast.Inspect(fn.Body, func(n ast.Node) bool {
		loop, ok := n.(*ast.ForStmt)
		if !ok || loop.Cond != nil {
			return true
		}
		if insp.hasSet {
			return true
		}
		findings = append(findings, models.Finding{
			Level:      models.LevelWarning,
			Message:    "unconditional loop without a visited set or iteration cap",
			Line:       fset.Position(loop.Pos()).Line,
			Suggestion: "track visited cells in a map or bound the loop with a counter",
		})
		return true
	})
	return findings
}

// checkStyle emits suggestion-level findings only; none of these affect
// validity.
func checkStyle(fset *token.FileSet, findPath, visitedOrder *ast.FuncDecl) []models.Finding {
	var findings []models.Finding

	for _, fn := range []*ast.FuncDecl{findPath, visitedOrder} {
		if fn == nil || fn.Doc != nil {
			continue
		}
		findings = append(findings, models.Finding{
			Level:      models.LevelSuggestion,
			Message:    fn.Name.Name + " has no doc comment",
			Line:       fset.Position(fn.Pos()).Line,
			Suggestion: "describe the strategy and the coordinate convention",
		})
	}

	if line := firstMagicNumber(fset, findPath); line > 0 {
		findings = append(findings, models.Finding{
			Level:      models.LevelSuggestion,
			Message:    "magic number in a comparison",
			Line:       line,
			Suggestion: "name cell kinds as constants, e.g. const wall = 1",
		})
	}

	return findings
}

// firstMagicNumber returns the line of the first integer literal other than
// 0 or 1 used directly in a comparison, or 0 when there is none. 0 and 1
// are the empty/wall cell kinds every candidate must mention.
func firstMagicNumber(fset *token.FileSet, fn *ast.FuncDecl) int {
	line := 0
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		if line > 0 {
			return false
		}
		cmp, ok := n.(*ast.BinaryExpr)
		if !ok {
			return true
		}
		switch cmp.Op {
		case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		default:
			return true
		}
		for _, side := range []ast.Expr{cmp.X, cmp.Y} {
			lit, ok := side.(*ast.BasicLit)
			if !ok || lit.Kind != token.INT {
				continue
			}
			if v, err := strconv.Atoi(lit.Value); err == nil && v != 0 && v != 1 {
				line = fset.Position(lit.Pos()).Line
			}
		}
		return true
	})
	return line
}
