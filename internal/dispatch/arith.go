package dispatch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const maxExprLen = 256

var errBadExpr = errors.New("dispatch: cannot evaluate expression")

// Evaluate computes an arithmetic expression with Python operator
// semantics: + - * / // ** %, unary signs and parentheses. ** binds
// tighter than a leading sign and is right associative; // floors and %
// takes the sign of the divisor.
func Evaluate(expr string) (float64, error) {
	if len(expr) > maxExprLen {
		return 0, fmt.Errorf("%w: too long", errBadExpr)
	}
	p := &arithParser{src: expr}
	p.next()
	v, err := p.sum()
	if err != nil {
		return 0, err
	}
	if p.tok != "" {
		return 0, fmt.Errorf("%w: unexpected %q", errBadExpr, p.tok)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: result out of range", errBadExpr)
	}
	return v, nil
}

// formatNumber prints integral results without a fraction.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}

type arithParser struct {
	src string
	pos int
	tok string // current token, "" at end
}

func (p *arithParser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.tok = ""
		return
	}
	start := p.pos
	c := p.src[p.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
	case (c == '*' || c == '/') && p.pos+1 < len(p.src) && p.src[p.pos+1] == c:
		p.pos += 2
	default:
		p.pos++
	}
	p.tok = p.src[start:p.pos]
}

// sum := term (('+'|'-') term)*
func (p *arithParser) sum() (float64, error) {
	v, err := p.term()
	for err == nil && (p.tok == "+" || p.tok == "-") {
		op := p.tok
		p.next()
		var r float64
		if r, err = p.term(); err == nil {
			if op == "+" {
				v += r
			} else {
				v -= r
			}
		}
	}
	return v, err
}

// term := factor (('*'|'/'|'//'|'%') factor)*
func (p *arithParser) term() (float64, error) {
	v, err := p.factor()
	for err == nil && (p.tok == "*" || p.tok == "/" || p.tok == "//" || p.tok == "%") {
		op := p.tok
		p.next()
		var r float64
		if r, err = p.factor(); err != nil {
			break
		}
		if op != "*" && r == 0 {
			return 0, fmt.Errorf("%w: division by zero", errBadExpr)
		}
		switch op {
		case "*":
			v *= r
		case "/":
			v /= r
		case "//":
			v = math.Floor(v / r)
		case "%":
			v -= r * math.Floor(v/r)
		}
	}
	return v, err
}

// factor := ('+'|'-') factor | power
func (p *arithParser) factor() (float64, error) {
	switch p.tok {
	case "-":
		p.next()
		v, err := p.factor()
		return -v, err
	case "+":
		p.next()
		return p.factor()
	}
	return p.power()
}

// power := primary ['**' factor]
func (p *arithParser) power() (float64, error) {
	v, err := p.primary()
	if err != nil || p.tok != "**" {
		return v, err
	}
	p.next()
	e, err := p.factor()
	if err != nil {
		return 0, err
	}
	return math.Pow(v, e), nil
}

func (p *arithParser) primary() (float64, error) {
	tok := p.tok
	switch {
	case tok == "(":
		p.next()
		v, err := p.sum()
		if err != nil {
			return 0, err
		}
		if p.tok != ")" {
			return 0, fmt.Errorf("%w: missing )", errBadExpr)
		}
		p.next()
		return v, nil
	case tok != "" && (tok[0] >= '0' && tok[0] <= '9' || tok[0] == '.'):
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad number %q", errBadExpr, tok)
		}
		p.next()
		return v, nil
	}
	if tok == "" {
		return 0, fmt.Errorf("%w: unexpected end", errBadExpr)
	}
	return 0, fmt.Errorf("%w: unexpected %q", errBadExpr, tok)
}
