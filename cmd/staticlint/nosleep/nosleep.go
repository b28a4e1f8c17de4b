// Package nosleep содержит анализатор, который запрещает прямой вызов time.Sleep.
// Паузы в боте должны учитывать отмену контекста, поэтому они идут через пакет pace.
package nosleep

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer запрещает time.Sleep вне тестов.
var Analyzer = &analysis.Analyzer{
	Name: "nosleep",
	Doc:  "запрещает time.Sleep: пауза должна прерываться отменой контекста",
	Run:  run,
}

// NewAnalyzer возвращает анализатор nosleep.
func NewAnalyzer() *analysis.Analyzer {
	return Analyzer
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		name := pass.Fset.Position(file.Pos()).Filename
		if strings.HasSuffix(name, "_test.go") {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			var ident *ast.Ident
			switch fun := call.Fun.(type) {
			case *ast.SelectorExpr:
				ident = fun.Sel
			case *ast.Ident:
				ident = fun
			default:
				return true
			}

			if fn, ok := pass.TypesInfo.Uses[ident].(*types.Func); ok && fn.FullName() == "time.Sleep" {
				pass.Reportf(call.Pos(), "вызов time.Sleep запрещён, используйте pace.Sleep с контекстом")
			}
			return true
		})
	}
	return nil, nil
}
