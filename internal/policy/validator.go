package policy

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/jsonagents/jsonagents/internal/diag"
)

// DefaultContexts are the variable namespaces every validator knows.
var DefaultContexts = []string{"agent", "message", "runtime", "tool"}

// Result is the outcome of validating one expression.
type Result struct {
	diag.Result
	Expression string  `json:"expression"`
	Tokens     []Token `json:"tokens,omitempty"`
}

// Validator checks where-clause expressions. It is immutable after
// construction and safe for concurrent use.
type Validator struct {
	contexts []string
}

// NewValidator creates a validator that knows DefaultContexts plus any extra
// namespaces.
func NewValidator(extraContexts ...string) *Validator {
	contexts := slices.Clone(DefaultContexts)
	for _, c := range extraContexts {
		c = strings.TrimSpace(c)
		if c != "" && !slices.Contains(contexts, c) {
			contexts = append(contexts, c)
		}
	}
	slices.Sort(contexts)
	return &Validator{contexts: contexts}
}

var defaultValidator = NewValidator()

// Validate checks expr with the default context set.
func Validate(expr string) Result {
	return defaultValidator.Validate(expr)
}

// Contexts returns the known variable namespaces in sorted order.
func (v *Validator) Contexts() []string {
	return slices.Clone(v.contexts)
}

// Validate tokenizes expr and checks, in order: emptiness, bracket balance,
// operator neighbors and variable namespaces. Unknown namespaces are
// warnings; everything else is an error.
func (v *Validator) Validate(expr string) Result {
	res := Result{Expression: expr}
	c := diag.NewCollector()

	if strings.TrimSpace(expr) == "" {
		c.Errorf(diag.GrammarError, "", "expression cannot be empty")
		res.Result = c.Result(false)
		return res
	}

	tokens, err := Tokenize(expr)
	if err != nil {
		var lexErr *LexError
		if errors.As(err, &lexErr) {
			c.Add(diag.Diagnostic{
				Code:       diag.LexError,
				Severity:   diag.SeverityError,
				Message:    "tokenization error at " + lexErr.Error(),
				Suggestion: lexErr.Suggestion,
			})
		} else {
			c.Errorf(diag.LexError, "", "tokenization error: %v", err)
		}
		res.Result = c.Result(false)
		return res
	}
	res.Tokens = tokens

	checkBalance(tokens, c)
	checkNeighbors(tokens, c)
	v.checkVariables(tokens, c)
	checkPatterns(tokens, c)

	res.Result = c.Result(false)
	return res
}

// checkBalance counts parentheses and brackets in one pass.
func checkBalance(tokens []Token, c *diag.Collector) {
	type pair struct {
		open, close Kind
		name        string
		openCh      string
		closeCh     string
	}
	for _, p := range []pair{
		{ParenOpen, ParenClose, "parentheses", "(", ")"},
		{ListOpen, ListClose, "brackets", "[", "]"},
	} {
		var open []int
		for _, t := range tokens {
			switch t.Kind {
			case p.open:
				open = append(open, t.Pos)
			case p.close:
				if len(open) == 0 {
					c.Errorf(diag.GrammarError, "", "unbalanced %s: unexpected '%s' at position %d", p.name, p.closeCh, t.Pos)
					continue
				}
				open = open[:len(open)-1]
			}
		}
		if len(open) > 0 {
			c.Errorf(diag.GrammarError, "", "unbalanced %s: '%s' at position %d is never closed", p.name, p.openCh, open[0])
		}
	}
}

func endsOperand(t Token) bool {
	return t.Kind == Variable || t.IsLiteral() || t.Kind == ParenClose || t.Kind == ListClose
}

func isBinary(t Token) bool {
	return t.IsOperator() && !t.IsNot()
}

// acceptsRight reports whether next may directly follow the binary operator op.
func acceptsRight(op, next Token) bool {
	switch {
	case next.Kind == Variable || next.Kind == ParenOpen:
		return true
	case op.Kind == Logical:
		return next.IsLiteral() || next.IsNot()
	case op.Kind == Membership:
		return next.Kind == ListOpen || next.Kind == String
	default:
		return next.IsLiteral()
	}
}

// checkNeighbors verifies that every token has a legal left and right
// neighbor.
func checkNeighbors(tokens []Token, c *diag.Collector) {
	inList := false
	for i, t := range tokens {
		var prev, next *Token
		if i > 0 {
			prev = &tokens[i-1]
		}
		if i+1 < len(tokens) {
			next = &tokens[i+1]
		}

		if inList {
			checkListToken(t, prev, c)
			if t.Kind == ListClose {
				inList = false
			}
			continue
		}

		switch {
		case isBinary(t):
			switch {
			case prev == nil:
				c.Errorf(diag.GrammarError, "", "operator '%s' at start of expression needs a left operand", t.Text)
			case prev.Kind == ParenOpen:
				c.Errorf(diag.GrammarError, "", "operator '%s' after '(' at position %d needs a left operand", t.Text, t.Pos)
			case isBinary(*prev) || prev.IsNot():
				c.Errorf(diag.GrammarError, "", "consecutive operators '%s %s' at position %d", prev.Text, t.Text, t.Pos)
			case !endsOperand(*prev):
				c.Errorf(diag.GrammarError, "", "operator '%s' at position %d needs a left operand", t.Text, t.Pos)
			}
			switch {
			case next == nil:
				c.Errorf(diag.GrammarError, "", "operator '%s' at end of expression needs a right operand", t.Text)
			case next.Kind == ParenClose:
				c.Errorf(diag.GrammarError, "", "operator '%s' before ')' at position %d needs a right operand", t.Text, t.Pos)
			case isBinary(*next):
				// Reported as consecutive operators by the next token.
			case !acceptsRight(t, *next):
				c.Errorf(diag.GrammarError, "", "operator '%s' at position %d cannot take %s '%s' as its right operand", t.Text, t.Pos, describe(*next), next.Text)
			}

		case t.IsNot():
			if prev != nil && endsOperand(*prev) {
				c.Errorf(diag.GrammarError, "", "'not' at position %d cannot follow an operand; join conditions with '&&' or '||'", t.Pos)
			}
			switch {
			case next == nil:
				c.Errorf(diag.GrammarError, "", "operator 'not' at end of expression needs an operand")
			case next.Kind == ParenClose:
				c.Errorf(diag.GrammarError, "", "operator 'not' before ')' at position %d needs an operand", t.Pos)
			case next.Kind == Variable || next.IsLiteral() || next.Kind == ParenOpen || next.IsNot():
			case isBinary(*next):
				// Reported as consecutive operators by the next token.
			default:
				c.Errorf(diag.GrammarError, "", "operator 'not' at position %d cannot negate %s '%s'", t.Pos, describe(*next), next.Text)
			}

		case t.Kind == Variable || t.IsLiteral():
			if prev != nil && endsOperand(*prev) {
				c.Errorf(diag.GrammarError, "", "missing operator between '%s' and '%s' at position %d", prev.Text, t.Text, t.Pos)
			}

		case t.Kind == ParenOpen:
			if prev != nil && endsOperand(*prev) {
				c.Errorf(diag.GrammarError, "", "missing operator before '(' at position %d", t.Pos)
			}

		case t.Kind == ParenClose:
			if prev != nil && prev.Kind == ParenOpen {
				c.Errorf(diag.GrammarError, "", "empty parentheses at position %d", prev.Pos)
			}

		case t.Kind == ListOpen:
			if prev == nil || prev.Kind != Membership {
				c.Errorf(diag.GrammarError, "", "list literal at position %d must follow 'in' or 'not in'", t.Pos)
			}
			inList = true

		case t.Kind == Comma:
			c.Errorf(diag.GrammarError, "", "unexpected ',' at position %d outside a list literal", t.Pos)
		}
	}
}

// checkListToken validates one token inside a [ ... ] literal. prev is never
// nil here because the list opened before it.
func checkListToken(t Token, prev *Token, c *diag.Collector) {
	element := func(k Token) bool { return k.IsLiteral() || k.Kind == Variable }
	switch {
	case element(t):
		if element(*prev) {
			c.Errorf(diag.GrammarError, "", "missing ',' between list elements at position %d", t.Pos)
		}
	case t.Kind == Comma:
		if !element(*prev) {
			c.Errorf(diag.GrammarError, "", "expected a list element before ',' at position %d", t.Pos)
		}
	case t.Kind == ListClose:
		if prev.Kind == Comma {
			c.Errorf(diag.GrammarError, "", "trailing ',' in list literal at position %d", prev.Pos)
		}
	case t.Kind == ListOpen:
		c.Errorf(diag.GrammarError, "", "nested list literal at position %d is not supported", t.Pos)
	default:
		c.Errorf(diag.GrammarError, "", "%s '%s' at position %d is not allowed inside a list literal", describe(t), t.Text, t.Pos)
	}
}

// checkVariables warns about unknown namespaces and rejects malformed paths.
func (v *Validator) checkVariables(tokens []Token, c *diag.Collector) {
	for _, t := range tokens {
		if t.Kind != Variable {
			continue
		}
		segments := strings.Split(t.Text, ".")
		if slices.Contains(segments, "") {
			c.Errorf(diag.GrammarError, "", "malformed variable '%s' at position %d: empty path segment", t.Text, t.Pos)
			continue
		}
		root := segments[0]
		if slices.Contains(v.contexts, root) {
			continue
		}
		c.Add(diag.Diagnostic{
			Code:       diag.UnknownContext,
			Severity:   diag.SeverityWarning,
			Message:    fmt.Sprintf("unknown context variable '%s'. Valid contexts: %s", root, strings.Join(v.contexts, ", ")),
			Suggestion: diag.DidYouMean(root, v.contexts, 2),
		})
	}
}

// checkPatterns warns when a regex operand is not valid RE2.
func checkPatterns(tokens []Token, c *diag.Collector) {
	for i, t := range tokens {
		if t.Kind != Comparison || (t.Text != "~" && t.Text != "!~") || i+1 >= len(tokens) {
			continue
		}
		operand := tokens[i+1]
		if operand.Kind != String {
			continue
		}
		if _, err := regexp.Compile(operand.Text); err != nil {
			c.Warnf(diag.GrammarError, "", "pattern '%s' at position %d is not a valid RE2 regular expression: %v", operand.Text, operand.Pos, err)
		}
	}
}

func describe(t Token) string {
	switch t.Kind {
	case Variable:
		return "variable"
	case String, Number, Bool, Null:
		return "literal"
	case ParenOpen, ParenClose:
		return "parenthesis"
	case ListOpen, ListClose:
		return "bracket"
	case Comma:
		return "separator"
	default:
		return "operator"
	}
}
