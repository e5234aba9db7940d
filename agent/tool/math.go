package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/albaqer-concierge/agent/contract"
)

const ToolCalculate = "calculate"

const maxExpressionLength = 200

type calculateArgs struct {
	Expression string `json:"expression" validate:"required,max=200"`
}

type CalculateOutput struct {
	Expression string          `json:"expression"`
	Result     float64         `json:"result"`
	Rounded    decimal.Decimal `json:"rounded"`
}

func calculateTool() Tool {
	return define(ToolCalculate,
		"Evaluate an arithmetic expression, e.g. totals with delivery fees or discounts. Supports + - * / % ^ and parentheses.",
		map[string]*schema.ParameterInfo{
			"expression": {Type: schema.String, Desc: "Expression to evaluate, e.g. (85 + 3) * 0.9", Required: true},
		},
		func(_ context.Context, args calculateArgs) (Output, error) {
			expr := strings.TrimSpace(args.Expression)
			value, err := Evaluate(expr)
			if err != nil {
				return Output{}, fmt.Errorf("%w: %v", contractx.ErrToolArgument, err)
			}
			return Output{Result: CalculateOutput{
				Expression: expr,
				Result:     value,
				Rounded:    decimal.NewFromFloat(value).Round(2),
			}}, nil
		},
	)
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOperator
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	op    byte
	value float64
	pos   int
}

func tokenize(expr string) ([]token, error) {
	if expr == "" {
		return nil, errors.New("expression is empty")
	}
	if len(expr) > maxExpressionLength {
		return nil, errors.New("expression is too long")
	}

	var tokens []token
	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i})
			i++
		case strings.IndexByte("+-*/%^", ch) >= 0:
			tokens = append(tokens, token{kind: tokOperator, op: ch, pos: i})
			i++
		case ch == '.' || (ch >= '0' && ch <= '9'):
			start := i
			for i < len(expr) && (expr[i] == '.' || (expr[i] >= '0' && expr[i] <= '9')) {
				i++
			}
			v, err := strconv.ParseFloat(expr[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at position %d", expr[start:i], start)
			}
			tokens = append(tokens, token{kind: tokNumber, value: v, pos: start})
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", ch, i)
		}
	}
	return tokens, nil
}

// Evaluate computes an arithmetic expression with the usual precedence;
// ^ binds tightest and associates to the right.
func Evaluate(expr string) (float64, error) {
	tokens, err := tokenize(strings.TrimSpace(expr))
	if err != nil {
		return 0, err
	}
	e := &evaluator{tokens: tokens}
	v, err := e.binary(0)
	if err != nil {
		return 0, err
	}
	if e.pos < len(e.tokens) {
		return 0, fmt.Errorf("unexpected token at position %d", e.tokens[e.pos].pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.New("result is not a finite number")
	}
	return v, nil
}

type evaluator struct {
	tokens []token
	pos    int
}

func precedence(op byte) (prec int, rightAssoc bool) {
	switch op {
	case '+', '-':
		return 1, false
	case '*', '/', '%':
		return 2, false
	case '^':
		return 3, true
	}
	return 0, false
}

func (e *evaluator) binary(minPrec int) (float64, error) {
	left, err := e.unary()
	if err != nil {
		return 0, err
	}
	for e.pos < len(e.tokens) {
		tok := e.tokens[e.pos]
		if tok.kind != tokOperator {
			break
		}
		prec, right := precedence(tok.op)
		if prec < minPrec || prec == 0 {
			break
		}
		e.pos++

		next := prec + 1
		if right {
			next = prec
		}
		rhs, err := e.binary(next)
		if err != nil {
			return 0, err
		}
		if left, err = apply(tok.op, left, rhs); err != nil {
			return 0, err
		}
	}
	return left, nil
}

func (e *evaluator) unary() (float64, error) {
	if e.pos >= len(e.tokens) {
		return 0, errors.New("unexpected end of expression")
	}
	tok := e.tokens[e.pos]
	switch {
	case tok.kind == tokOperator && (tok.op == '-' || tok.op == '+'):
		e.pos++
		v, err := e.unary()
		if tok.op == '-' {
			v = -v
		}
		return v, err
	case tok.kind == tokNumber:
		e.pos++
		return e.postfixPower(tok.value)
	case tok.kind == tokLParen:
		e.pos++
		v, err := e.binary(0)
		if err != nil {
			return 0, err
		}
		if e.pos >= len(e.tokens) || e.tokens[e.pos].kind != tokRParen {
			return 0, fmt.Errorf("missing closing parenthesis for position %d", tok.pos)
		}
		e.pos++
		return e.postfixPower(v)
	default:
		return 0, fmt.Errorf("expected number at position %d", tok.pos)
	}
}

// postfixPower lets ^ bind tighter than a leading minus: -2^2 is -4.
func (e *evaluator) postfixPower(base float64) (float64, error) {
	if e.pos < len(e.tokens) && e.tokens[e.pos].kind == tokOperator && e.tokens[e.pos].op == '^' {
		e.pos++
		exp, err := e.unary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func apply(op byte, a, b float64) (float64, error) {
	switch op {
	case '+':
		return a + b, nil
	case '-':
		return a - b, nil
	case '*':
		return a * b, nil
	case '/':
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	case '%':
		if b == 0 {
			return 0, errors.New("modulo by zero")
		}
		return math.Mod(a, b), nil
	case '^':
		return math.Pow(a, b), nil
	}
	return 0, fmt.Errorf("unknown operator %q", op)
}
