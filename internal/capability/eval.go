package capability

import (
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/parser"
	"go/scanner"
	"go/token"
	"math"
	"sort"
	"strconv"
	"strings"

	"telconsole/internal/bindings"
)

// maxShift caps shift counts so 1<<n cannot exhaust memory.
const maxShift = 4096

// noValue is the result of statements that print instead of producing
// a value.
type noValue struct{}

// Evaluator evaluates one console line against a binding set.
//
// A line is a single Go expression or an assignment (name = expr,
// name := expr).  Numbers, strings and booleans are evaluated exactly
// with go/constant; other bound values (maps from a bindings file,
// functions, the console) can be selected, indexed or called.
type Evaluator struct {
	Bindings *bindings.Set
}

// Eval evaluates line.  The second result is false when the line
// produced no value (for example print(x)).
func (e *Evaluator) Eval(line string) (result any, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, ok, err = nil, false, fmt.Errorf("invalid operation: %v", r)
		}
	}()

	stmt, err := parseLine(line)
	if err != nil {
		return nil, false, err
	}

	switch s := stmt.(type) {
	case *ast.ExprStmt:
		v, err := e.eval(s.X)
		if err != nil {
			return nil, false, err
		}
		if _, void := v.(noValue); void {
			return nil, false, nil
		}
		return lower(v), true, nil

	case *ast.AssignStmt:
		if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
			return nil, false, errors.New("assign one name at a time")
		}
		if s.Tok != token.ASSIGN && s.Tok != token.DEFINE {
			return nil, false, fmt.Errorf("unsupported assignment %s", s.Tok)
		}
		id, isIdent := s.Lhs[0].(*ast.Ident)
		if !isIdent {
			return nil, false, errors.New("can only assign to a name")
		}
		v, err := e.eval(s.Rhs[0])
		if err != nil {
			return nil, false, err
		}
		if err := e.assign(id.Name, v); err != nil {
			return nil, false, err
		}
		return lower(v), true, nil
	}
	return nil, false, fmt.Errorf("unsupported statement")
}

// Assign evaluates expr and binds the result to name.
func (e *Evaluator) Assign(name, expr string) (any, error) {
	if !token.IsIdentifier(name) {
		return nil, fmt.Errorf("invalid name %q", name)
	}
	x, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, syntaxError(err)
	}
	v, err := e.eval(x)
	if err != nil {
		return nil, err
	}
	if err := e.assign(name, v); err != nil {
		return nil, err
	}
	return lower(v), nil
}

func (e *Evaluator) assign(name string, v any) error {
	if name == bindings.ConsoleName {
		return errors.New("cannot assign to console")
	}
	if name == "_" {
		return nil
	}
	if _, void := v.(noValue); void {
		return errors.New("expression has no value")
	}
	e.Bindings.Set(name, lower(v))
	return nil
}

func parseLine(line string) (ast.Stmt, error) {
	src := "package p\nfunc _() {\n" + line + "\n}\n"
	f, err := parser.ParseFile(token.NewFileSet(), "", src, 0)
	if err != nil {
		return nil, syntaxError(err)
	}
	body := f.Decls[0].(*ast.FuncDecl).Body.List
	if len(body) != 1 {
		return nil, errors.New("one statement per line")
	}
	return body[0], nil
}

func syntaxError(err error) error {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return fmt.Errorf("syntax error: %s", list[0].Msg)
	}
	return fmt.Errorf("syntax error: %w", err)
}

func (e *Evaluator) eval(x ast.Expr) (any, error) {
	switch n := x.(type) {
	case *ast.ParenExpr:
		return e.eval(n.X)

	case *ast.BasicLit:
		switch n.Kind {
		case token.INT, token.FLOAT, token.STRING, token.CHAR:
			v := constant.MakeFromLiteral(n.Value, n.Kind, 0)
			if v.Kind() == constant.Unknown {
				return nil, fmt.Errorf("malformed literal %s", n.Value)
			}
			return v, nil
		}
		return nil, fmt.Errorf("unsupported literal %s", n.Value)

	case *ast.Ident:
		return e.lookup(n.Name)

	case *ast.UnaryExpr:
		v, err := e.eval(n.X)
		if err != nil {
			return nil, err
		}
		return unary(n.Op, v)

	case *ast.BinaryExpr:
		return e.binary(n)

	case *ast.CallExpr:
		return e.call(n)

	case *ast.SelectorExpr:
		v, err := e.eval(n.X)
		if err != nil {
			return nil, err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s has no field %s", describe(v), n.Sel.Name)
		}
		f, ok := m[n.Sel.Name]
		if !ok {
			return nil, fmt.Errorf("no field %s", n.Sel.Name)
		}
		return lift(f), nil

	case *ast.IndexExpr:
		return e.index(n)
	}
	return nil, fmt.Errorf("unsupported expression %T", x)
}

func (e *Evaluator) lookup(name string) (any, error) {
	if v, ok := e.Bindings.Get(name); ok {
		return lift(v), nil
	}
	switch name {
	case "true":
		return constant.MakeBool(true), nil
	case "false":
		return constant.MakeBool(false), nil
	case "nil":
		return nil, nil
	}
	return nil, fmt.Errorf("undefined: %s", name)
}

func unary(op token.Token, v any) (any, error) {
	c, ok := v.(constant.Value)
	if !ok {
		return nil, fmt.Errorf("invalid operation: %s%s", op, describe(v))
	}
	switch op {
	case token.ADD, token.SUB:
		if !isNumeric(c) {
			return nil, fmt.Errorf("invalid operation: %s%s", op, describe(v))
		}
	case token.XOR:
		if c.Kind() != constant.Int {
			return nil, fmt.Errorf("invalid operation: %s%s", op, describe(v))
		}
	case token.NOT:
		if c.Kind() != constant.Bool {
			return nil, fmt.Errorf("invalid operation: !%s", describe(v))
		}
	default:
		return nil, fmt.Errorf("unsupported operator %s", op)
	}
	return constant.UnaryOp(op, c, 0), nil
}

func (e *Evaluator) binary(n *ast.BinaryExpr) (any, error) {
	l, err := e.eval(n.X)
	if err != nil {
		return nil, err
	}

	// Short-circuit logic.
	if n.Op == token.LAND || n.Op == token.LOR {
		lb, ok := asBool(l)
		if !ok {
			return nil, fmt.Errorf("invalid operation: %s %s ...", describe(l), n.Op)
		}
		if (n.Op == token.LAND && !lb) || (n.Op == token.LOR && lb) {
			return constant.MakeBool(lb), nil
		}
		r, err := e.eval(n.Y)
		if err != nil {
			return nil, err
		}
		rb, ok := asBool(r)
		if !ok {
			return nil, fmt.Errorf("invalid operation: ... %s %s", n.Op, describe(r))
		}
		return constant.MakeBool(rb), nil
	}

	r, err := e.eval(n.Y)
	if err != nil {
		return nil, err
	}

	lc, lok := l.(constant.Value)
	rc, rok := r.(constant.Value)

	switch n.Op {
	case token.EQL, token.NEQ:
		if !lok || !rok {
			eq := l == nil && r == nil
			if n.Op == token.NEQ {
				eq = !eq
			}
			return constant.MakeBool(eq), nil
		}
		if !sameClass(lc, rc) {
			return nil, mismatched(n.Op, l, r)
		}
		return constant.MakeBool(constant.Compare(lc, n.Op, rc)), nil

	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		if !lok || !rok || !sameClass(lc, rc) || lc.Kind() == constant.Bool {
			return nil, mismatched(n.Op, l, r)
		}
		return constant.MakeBool(constant.Compare(lc, n.Op, rc)), nil
	}

	if !lok || !rok {
		return nil, mismatched(n.Op, l, r)
	}

	switch n.Op {
	case token.ADD:
		if lc.Kind() == constant.String && rc.Kind() == constant.String {
			return constant.BinaryOp(lc, token.ADD, rc), nil
		}
		fallthrough
	case token.SUB, token.MUL:
		if !isNumeric(lc) || !isNumeric(rc) {
			return nil, mismatched(n.Op, l, r)
		}
		return constant.BinaryOp(lc, n.Op, rc), nil

	case token.QUO:
		if !isNumeric(lc) || !isNumeric(rc) {
			return nil, mismatched(n.Op, l, r)
		}
		if constant.Sign(rc) == 0 {
			return nil, errors.New("division by zero")
		}
		if lc.Kind() == constant.Int && rc.Kind() == constant.Int {
			return constant.BinaryOp(lc, token.QUO_ASSIGN, rc), nil
		}
		return constant.BinaryOp(lc, token.QUO, rc), nil

	case token.REM, token.AND, token.OR, token.XOR, token.AND_NOT:
		if lc.Kind() != constant.Int || rc.Kind() != constant.Int {
			return nil, mismatched(n.Op, l, r)
		}
		if n.Op == token.REM && constant.Sign(rc) == 0 {
			return nil, errors.New("division by zero")
		}
		return constant.BinaryOp(lc, n.Op, rc), nil

	case token.SHL, token.SHR:
		if lc.Kind() != constant.Int || rc.Kind() != constant.Int {
			return nil, mismatched(n.Op, l, r)
		}
		s, exact := constant.Uint64Val(rc)
		if !exact || s > maxShift {
			return nil, fmt.Errorf("invalid shift count %s", rc)
		}
		return constant.Shift(lc, n.Op, uint(s)), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", n.Op)
}

func (e *Evaluator) call(n *ast.CallExpr) (any, error) {
	if n.Ellipsis.IsValid() {
		return nil, errors.New("variadic calls are not supported")
	}

	// console.print / console.println
	if sel, ok := n.Fun.(*ast.SelectorExpr); ok {
		if id, ok := sel.X.(*ast.Ident); ok && id.Name == bindings.ConsoleName {
			return e.printCall(sel.Sel.Name, n.Args)
		}
	}

	if id, ok := n.Fun.(*ast.Ident); ok {
		if _, bound := e.Bindings.Get(id.Name); !bound {
			switch id.Name {
			case "print", "println":
				return e.printCall(id.Name, n.Args)
			case "len":
				return e.builtinLen(n.Args)
			}
		}
	}

	fv, err := e.eval(n.Fun)
	if err != nil {
		return nil, err
	}
	fn, ok := fv.(bindings.Func)
	if !ok {
		return nil, fmt.Errorf("cannot call non-function %s", describe(fv))
	}
	args, err := e.args(n.Args)
	if err != nil {
		return nil, err
	}
	out, err := fn(args...)
	if err != nil {
		return nil, err
	}
	return lift(out), nil
}

func (e *Evaluator) printCall(name string, argExprs []ast.Expr) (any, error) {
	con := e.Bindings.Console()
	if con == nil {
		return nil, errors.New("console is not available")
	}
	args, err := e.args(argExprs)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	text := strings.Join(parts, " ")

	switch name {
	case "print":
		err = con.Print(text)
	case "println":
		err = con.Println(text)
	default:
		return nil, fmt.Errorf("console has no method %s", name)
	}
	if err != nil {
		return nil, err
	}
	return noValue{}, nil
}

func (e *Evaluator) builtinLen(argExprs []ast.Expr) (any, error) {
	if len(argExprs) != 1 {
		return nil, errors.New("len takes exactly one argument")
	}
	v, err := e.eval(argExprs[0])
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case constant.Value:
		if x.Kind() == constant.String {
			return constant.MakeInt64(int64(len(constant.StringVal(x)))), nil
		}
	case map[string]any:
		return constant.MakeInt64(int64(len(x))), nil
	case []any:
		return constant.MakeInt64(int64(len(x))), nil
	}
	return nil, fmt.Errorf("invalid argument: len(%s)", describe(v))
}

func (e *Evaluator) index(n *ast.IndexExpr) (any, error) {
	v, err := e.eval(n.X)
	if err != nil {
		return nil, err
	}
	k, err := e.eval(n.Index)
	if err != nil {
		return nil, err
	}
	kc, ok := k.(constant.Value)
	if !ok {
		return nil, fmt.Errorf("invalid index %s", describe(k))
	}

	switch x := v.(type) {
	case map[string]any:
		if kc.Kind() != constant.String {
			return nil, fmt.Errorf("map key must be a string")
		}
		f, ok := x[constant.StringVal(kc)]
		if !ok {
			return nil, nil
		}
		return lift(f), nil
	case []any:
		i, exact := constant.Int64Val(kc)
		if kc.Kind() != constant.Int || !exact || i < 0 || i >= int64(len(x)) {
			return nil, fmt.Errorf("index %s out of range [0:%d]", kc, len(x))
		}
		return lift(x[i]), nil
	}
	return nil, fmt.Errorf("cannot index %s", describe(v))
}

func (e *Evaluator) args(exprs []ast.Expr) ([]any, error) {
	out := make([]any, 0, len(exprs))
	for _, a := range exprs {
		v, err := e.eval(a)
		if err != nil {
			return nil, err
		}
		if _, void := v.(noValue); void {
			return nil, errors.New("argument has no value")
		}
		out = append(out, lower(v))
	}
	return out, nil
}

// ── Value conversion ─────────────────────────────────────────────────

// lift converts Go scalars into constant.Value so they take part in
// arithmetic.  Other values are returned as is.
func lift(v any) any {
	switch x := v.(type) {
	case bool:
		return constant.MakeBool(x)
	case string:
		return constant.MakeString(x)
	case int:
		return constant.MakeInt64(int64(x))
	case int32:
		return constant.MakeInt64(int64(x))
	case int64:
		return constant.MakeInt64(x)
	case uint64:
		return constant.MakeUint64(x)
	case float32:
		return constant.MakeFloat64(float64(x))
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return v
		}
		return constant.MakeFloat64(x)
	}
	return v
}

// lower converts constant.Value back into plain Go values for storage
// and for passing to bound functions.  Integers too large for int64
// stay as constant.Value.
func lower(v any) any {
	c, ok := v.(constant.Value)
	if !ok {
		return v
	}
	switch c.Kind() {
	case constant.Bool:
		return constant.BoolVal(c)
	case constant.String:
		return constant.StringVal(c)
	case constant.Int:
		if i, exact := constant.Int64Val(c); exact {
			return i
		}
		return c
	case constant.Float:
		f, _ := constant.Float64Val(c)
		return f
	}
	return c
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case constant.Value:
		if x.Kind() == constant.Int {
			return x.ExactString()
		}
		return formatValue(lower(x))
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bindings.Func:
		return "<function>"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + formatValue(x[k])
		}
		return "{" + strings.Join(parts, " ") + "}"
	case []any:
		parts := make([]string, len(x))
		for i, el := range x {
			parts[i] = formatValue(el)
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return fmt.Sprint(v)
}

// typeName names a bound value's type for :vars.
func typeName(v any) string {
	switch x := lift(v).(type) {
	case nil:
		return "nil"
	case constant.Value:
		switch x.Kind() {
		case constant.Bool:
			return "bool"
		case constant.String:
			return "string"
		case constant.Int:
			return "int"
		case constant.Float:
			return "float"
		}
	case bindings.Func:
		return "func"
	case bindings.Console:
		return "console"
	case map[string]any:
		return "map"
	case []any:
		return "list"
	}
	return fmt.Sprintf("%T", v)
}

func describe(v any) string {
	return formatValue(lower(v)) + " (" + typeName(lower(v)) + ")"
}

func isNumeric(c constant.Value) bool {
	return c.Kind() == constant.Int || c.Kind() == constant.Float
}

func sameClass(a, b constant.Value) bool {
	if isNumeric(a) && isNumeric(b) {
		return true
	}
	return a.Kind() == b.Kind()
}

func asBool(v any) (bool, bool) {
	c, ok := v.(constant.Value)
	if !ok || c.Kind() != constant.Bool {
		return false, false
	}
	return constant.BoolVal(c), true
}

func mismatched(op token.Token, l, r any) error {
	return fmt.Errorf("invalid operation: %s %s %s", describe(l), op, describe(r))
}
