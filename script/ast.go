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

// Package script implements the embedded script runtime (C6): a tiny
// statement-sequence interpreter whose only expression shape is a function
// call, grounded on the teacher's Eval/Apply/Env split in scm/scm.go but
// without its Scmer tagged-union value representation, which exists there
// purely for interpreter hot-path performance a handful of EVAL calls per
// connection never needs.
package script

// Expr is one parsed expression: a Call or a literal.
type Expr interface{ isExpr() }

// StringLit is a quoted string literal.
type StringLit string

// NumberLit is a numeric literal.
type NumberLit float64

// Call is `name(args...)` or `namespace.name(args...)` - the language's only
// compound form. redis.call/redis.pcall and error() are the statement
// builtins the interpreter recognizes, and KEYS()/ARGV() the argument
// builtins; every other name is a script error at eval time, not a parse
// error.
type Call struct {
	Namespace string // "" when the call has no dotted prefix
	Name      string
	Args      []Expr
}

func (StringLit) isExpr() {}
func (NumberLit) isExpr() {}
func (Call) isExpr()      {}
