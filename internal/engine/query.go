package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/miradorstack/mirador-classify/internal/models"
)

// ErrMalformedQuery is wrapped by every QueryError.
var ErrMalformedQuery = errors.New("malformed query")

// QueryError reports where a query failed to parse.
type QueryError struct {
	Query string
	Pos   int
	Msg   string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s at position %d: %s", ErrMalformedQuery, e.Pos, e.Msg)
}

func (e *QueryError) Unwrap() error {
	return ErrMalformedQuery
}

// Node is a parsed query expression.
type Node interface {
	String() string
}

// Literal matches records whose text contains Text, ignoring case.
type Literal struct {
	Text string
}

// Not matches records in Left that are not in Right. A nil Left stands for
// every record.
type Not struct {
	Left  Node
	Right Node
}

// And matches records present in every term.
type And struct {
	Terms []Node
}

// Or matches records present in any term.
type Or struct {
	Terms []Node
}

// Group is a parenthesised expression.
type Group struct {
	Expr Node
}

func (n Literal) String() string { return fmt.Sprintf("%q", n.Text) }

func (n Not) String() string {
	if n.Left == nil {
		return "(NOT " + n.Right.String() + ")"
	}
	return "(" + n.Left.String() + " NOT " + n.Right.String() + ")"
}

func (n And) String() string { return joinNodes(n.Terms, " AND ") }
func (n Or) String() string  { return joinNodes(n.Terms, " OR ") }
func (n Group) String() string {
	return "(" + n.Expr.String() + ")"
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokOpen
	tokClose
)

type token struct {
	kind  tokenKind
	start int
	end   int
}

// tokenize splits a query into words, parentheses and operators. Operators
// are whole words, so "ANDROID" stays a word.
func tokenize(query string) []token {
	var tokens []token
	i := 0
	for i < len(query) {
		switch c := query[i]; {
		case c == '(':
			tokens = append(tokens, token{kind: tokOpen, start: i, end: i + 1})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokClose, start: i, end: i + 1})
			i++
		case isSpace(c):
			i++
		default:
			start := i
			for i < len(query) && !isBoundary(query[i]) {
				i++
			}
			tokens = append(tokens, token{kind: wordKind(query[start:i]), start: start, end: i})
		}
	}
	return tokens
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func isBoundary(b byte) bool {
	return b == '(' || b == ')' || isSpace(b)
}

func wordKind(word string) tokenKind {
	switch {
	case strings.EqualFold(word, "AND"):
		return tokAnd
	case strings.EqualFold(word, "OR"):
		return tokOr
	case strings.EqualFold(word, "NOT"):
		return tokNot
	default:
		return tokWord
	}
}

// Parse builds the expression tree for query. Operators resolve in the order
// NOT (leftmost first), OR, AND, parenthesised group, literal; NOT therefore
// binds loosest and "a OR b NOT c" means (a OR b) NOT c. A NOT directly
// after AND or OR negates the whole remainder: "a AND NOT b" is a NOT b and
// "a OR NOT b" is a OR (every record NOT b). A blank query
// parses to nil.
func Parse(query string) (Node, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	p := parser{query: query, tokens: tokenize(query)}
	if err := p.checkBalance(); err != nil {
		return nil, err
	}
	return p.expr(p.tokens, 0)
}

type parser struct {
	query  string
	tokens []token
}

func (p *parser) fail(pos int, format string, args ...any) error {
	return &QueryError{Query: p.query, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) checkBalance() error {
	var open []int
	for _, t := range p.tokens {
		switch t.kind {
		case tokOpen:
			open = append(open, t.start)
		case tokClose:
			if len(open) == 0 {
				return p.fail(t.start, "unmatched ')'")
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return p.fail(open[len(open)-1], "unclosed '('")
	}
	return nil
}

// expr parses tokens; pos is the query offset used when tokens is empty.
func (p *parser) expr(tokens []token, pos int) (Node, error) {
	if len(tokens) == 0 {
		return nil, p.fail(pos, "missing operand")
	}

	if i := topLevel(tokens, tokNot); len(i) > 0 {
		at := i[0]
		left, right := tokens[:at], tokens[at+1:]
		// "a AND NOT b" reads as "a NOT b"; "a OR NOT b" as a OR (NOT b).
		orNot := false
		if n := len(left); n > 0 {
			switch left[n-1].kind {
			case tokAnd:
				left = left[:n-1]
			case tokOr:
				left = left[:n-1]
				orNot = true
			}
		}
		if len(right) == 0 {
			return nil, p.fail(tokens[at].start, "NOT without right operand")
		}
		rightNode, err := p.expr(right, right[0].start)
		if err != nil {
			return nil, err
		}
		if len(left) == 0 {
			if orNot {
				return nil, p.fail(tokens[at-1].start, "OR without operand")
			}
			return Not{Right: rightNode}, nil
		}
		leftNode, err := p.expr(left, left[0].start)
		if err != nil {
			return nil, err
		}
		if orNot {
			return Or{Terms: []Node{leftNode, Not{Right: rightNode}}}, nil
		}
		return Not{Left: leftNode, Right: rightNode}, nil
	}

	if at := topLevel(tokens, tokOr); len(at) > 0 {
		terms, err := p.split(tokens, at, "OR")
		if err != nil {
			return nil, err
		}
		return Or{Terms: terms}, nil
	}

	if at := topLevel(tokens, tokAnd); len(at) > 0 {
		terms, err := p.split(tokens, at, "AND")
		if err != nil {
			return nil, err
		}
		return And{Terms: terms}, nil
	}

	return p.factor(tokens)
}

func (p *parser) split(tokens []token, at []int, op string) ([]Node, error) {
	terms := make([]Node, 0, len(at)+1)
	prev := 0
	for _, idx := range append(at, len(tokens)) {
		part := tokens[prev:idx]
		if len(part) == 0 {
			return nil, p.fail(p.opPos(tokens, prev, idx), "%s without operand", op)
		}
		node, err := p.expr(part, part[0].start)
		if err != nil {
			return nil, err
		}
		terms = append(terms, node)
		prev = idx + 1
	}
	return terms, nil
}

// opPos locates the operator adjacent to an empty operand.
func (p *parser) opPos(tokens []token, prev, idx int) int {
	if idx < len(tokens) {
		return tokens[idx].start
	}
	return tokens[prev-1].start
}

func (p *parser) factor(tokens []token) (Node, error) {
	first, last := tokens[0], tokens[len(tokens)-1]
	if first.kind == tokOpen && last.kind == tokClose && closingIndex(tokens) == len(tokens)-1 {
		inner := tokens[1 : len(tokens)-1]
		if len(inner) == 0 {
			return nil, p.fail(first.start, "empty group")
		}
		expr, err := p.expr(inner, inner[0].start)
		if err != nil {
			return nil, err
		}
		return Group{Expr: expr}, nil
	}
	for _, t := range tokens {
		if t.kind != tokWord {
			return nil, p.fail(t.start, "unexpected %q", p.query[t.start:t.end])
		}
	}
	return Literal{Text: strings.TrimSpace(p.query[first.start:last.end])}, nil
}

// topLevel returns the indexes of kind tokens outside any parentheses.
func topLevel(tokens []token, kind tokenKind) []int {
	var out []int
	depth := 0
	for i, t := range tokens {
		switch t.kind {
		case tokOpen:
			depth++
		case tokClose:
			depth--
		case kind:
			if depth == 0 {
				out = append(out, i)
			}
		}
	}
	return out
}

// closingIndex returns the index of the parenthesis closing tokens[0].
func closingIndex(tokens []token) int {
	depth := 0
	for i, t := range tokens {
		switch t.kind {
		case tokOpen:
			depth++
		case tokClose:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Evaluate returns the records matching query, in input order. Records are
// compared by ID. A blank query returns records unchanged.
func Evaluate(query string, records []models.Record) ([]models.Record, error) {
	node, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return Select(node, records), nil
}

// EvaluateOrLiteral evaluates query, searching for the whole trimmed string as
// one literal when it does not parse. The parse error, if any, is returned
// alongside the fallback result.
func EvaluateOrLiteral(query string, records []models.Record) ([]models.Record, error) {
	out, err := Evaluate(query, records)
	if err == nil {
		return out, nil
	}
	return Select(Literal{Text: strings.TrimSpace(query)}, records), err
}

// Select applies a parsed expression. A nil node selects every record.
func Select(node Node, records []models.Record) []models.Record {
	if node == nil {
		return records
	}
	ev := evaluator{records: records, texts: make([]string, len(records))}
	ids := ev.eval(node)

	out := make([]models.Record, 0, len(ids))
	for _, rec := range records {
		if _, ok := ids[rec.ID]; ok {
			out = append(out, rec)
		}
	}
	return out
}

type idSet map[string]struct{}

type evaluator struct {
	records []models.Record
	texts   []string
}

func (e *evaluator) text(i int) string {
	if e.texts[i] == "" {
		e.texts[i] = strings.ToLower(e.records[i].SearchText())
	}
	return e.texts[i]
}

func (e *evaluator) all() idSet {
	out := make(idSet, len(e.records))
	for _, rec := range e.records {
		out[rec.ID] = struct{}{}
	}
	return out
}

func (e *evaluator) eval(node Node) idSet {
	switch n := node.(type) {
	case Literal:
		needle := strings.ToLower(n.Text)
		out := make(idSet)
		for i, rec := range e.records {
			if strings.Contains(e.text(i), needle) {
				out[rec.ID] = struct{}{}
			}
		}
		return out
	case Group:
		return e.eval(n.Expr)
	case Not:
		left := e.all()
		if n.Left != nil {
			left = e.eval(n.Left)
		}
		for id := range e.eval(n.Right) {
			delete(left, id)
		}
		return left
	case Or:
		out := make(idSet)
		for _, term := range n.Terms {
			for id := range e.eval(term) {
				out[id] = struct{}{}
			}
		}
		return out
	case And:
		var out idSet
		for i, term := range n.Terms {
			set := e.eval(term)
			if i == 0 {
				out = set
				continue
			}
			for id := range out {
				if _, ok := set[id]; !ok {
					delete(out, id)
				}
			}
		}
		return out
	default:
		return idSet{}
	}
}
