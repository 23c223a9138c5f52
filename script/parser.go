/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package script

import (
	"fmt"
	"strconv"
	"strings"

	packrat "github.com/launix-de/go-packrat/v2"
)

// The grammar below is built from the same combinator primitives the
// teacher wires up dynamically from Scheme syntax declarations in
// scm/packrat.go (NewAtomParser/NewRegexParser/NewAndParser/NewOrParser/
// NewKleeneParser/NewMaybeParser). Unlike the teacher, which reconstructs
// an AST through (define var ...) captures interpreted by a generator
// expression, this grammar is fixed at compile time, so extraction walks
// packrat.Node.Children directly by parser identity - the same technique
// the teacher's own ScmParser.Match uses to tag a wrapped match with itself
// as Parser (so a later switch on Node.Parser can recognize it).

// forwardParser lets the mutually-recursive call/arg rules reference each
// other before either is fully built, and tags its match with itself the
// same way scm/packrat.go's ScmParser.Match does.
type forwardParser struct{ inner packrat.Parser }

func (f *forwardParser) Match(s *packrat.Scanner) *packrat.Node {
	m := f.inner.Match(s)
	if m == nil {
		return nil
	}
	return &packrat.Node{Matched: m.Matched, Start: m.Start, Parser: f, Children: []*packrat.Node{m}}
}

type grammar struct {
	str  packrat.Parser
	num  packrat.Parser
	arg  *forwardParser
	call *forwardParser
	prog packrat.Parser
}

var g = buildGrammar()

func buildGrammar() *grammar {
	ident := packrat.NewRegexParser(`[A-Za-z_][A-Za-z0-9_]*`, false, true)
	dot := packrat.NewAtomParser(".", false, true)
	lparen := packrat.NewAtomParser("(", false, true)
	rparen := packrat.NewAtomParser(")", false, true)
	comma := packrat.NewAtomParser(",", false, true)
	semi := packrat.NewAtomParser(";", false, true)

	gr := &grammar{
		str:  packrat.NewRegexParser(`'(\\.|[^'\\])*'|"(\\.|[^"\\])*"`, false, true),
		num:  packrat.NewRegexParser(`-?[0-9]+(\.[0-9]+)?`, false, true),
		arg:  &forwardParser{},
		call: &forwardParser{},
	}

	gr.arg.inner = packrat.NewOrParser(gr.call, gr.str, gr.num)

	argList := packrat.NewKleeneParser(gr.arg, comma)
	dotName := packrat.NewMaybeParser(packrat.NewAndParser(dot, ident))
	gr.call.inner = packrat.NewAndParser(ident, dotName, lparen, argList, rparen)

	statements := packrat.NewKleeneParser(gr.call, semi)
	gr.prog = packrat.NewAndParser(statements, packrat.NewMaybeParser(semi))
	return gr
}

// Parse turns a script's source text into its top-level statement list.
func Parse(source string) (stmts []Call, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script parse error: %v", r)
		}
	}()

	scanner := packrat.NewScanner(source, packrat.SkipWhitespaceAndCommentsRegex)
	node, perr := packrat.Parse(g.prog, scanner)
	if perr != nil {
		return nil, perr
	}
	if node == nil {
		return nil, fmt.Errorf("script parse error: no match")
	}

	// prog := statements maybeTrailingSemi ; statements is Children[0]
	statementsNode := node.Children[0]
	for i := 0; i < len(statementsNode.Children); i += 2 {
		stmts = append(stmts, extractCall(statementsNode.Children[i]))
	}
	return stmts, nil
}

// extractCall unwraps a node produced by matching gr.call: the forwardParser
// wrapper (Children[0]) holds the real AndParser node for
// `ident dotName "(" argList ")"`.
func extractCall(wrapped *packrat.Node) Call {
	and := wrapped.Children[0]
	name := and.Children[0].Matched
	namespace := ""
	dotNameNode := and.Children[1]
	if len(dotNameNode.Children) > 0 {
		namespace = name
		name = dotNameNode.Children[0].Children[1].Matched
	}
	argListNode := and.Children[3]
	var args []Expr
	for i := 0; i < len(argListNode.Children); i += 2 {
		args = append(args, extractArg(argListNode.Children[i]))
	}
	return Call{Namespace: namespace, Name: name, Args: args}
}

// extractArg unwraps a node produced by matching gr.arg: the forwardParser
// wrapper (Children[0]) holds the OrParser node, whose own single matched
// child (Children[0]) is the call/string/number that actually matched.
func extractArg(wrapped *packrat.Node) Expr {
	or := wrapped.Children[0]
	inner := or.Children[0]
	switch inner.Parser {
	case g.call:
		return extractCall(inner)
	case g.str:
		return StringLit(unquote(inner.Matched))
	case g.num:
		f, perr := strconv.ParseFloat(inner.Matched, 64)
		if perr != nil {
			panic("script parse error: bad number literal " + inner.Matched)
		}
		return NumberLit(f)
	default:
		panic("script parse error: unexpected argument form")
	}
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	body := s[1 : len(s)-1]
	replacer := strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\\`, `\`, `\n`, "\n", `\r`, "\r", `\t`, "\t")
	return replacer.Replace(body)
}
