package policy

import "fmt"

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	Variable
	String
	Number
	Bool
	Null
	Comparison
	Membership
	StringOp
	Logical
	ParenOpen
	ParenClose
	ListOpen
	ListClose
	Comma
)

var kindNames = map[Kind]string{
	EOF:        "EOF",
	Variable:   "Variable",
	String:     "String",
	Number:     "Number",
	Bool:       "Bool",
	Null:       "Null",
	Comparison: "Comparison",
	Membership: "Membership",
	StringOp:   "StringOp",
	Logical:    "Logical",
	ParenOpen:  "ParenOpen",
	ParenClose: "ParenClose",
	ListOpen:   "ListOpen",
	ListClose:  "ListClose",
	Comma:      "Comma",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Token is one lexeme of a policy expression. Text holds the operator or
// identifier as written, or the unquoted contents of a string literal. Pos is
// the byte offset of the token in the source expression.
type Token struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
	Pos  int    `json:"pos"`
}

func (t Token) String() string {
	if t.Kind == String {
		return fmt.Sprintf("%s('%s')@%d", t.Kind, t.Text, t.Pos)
	}
	return fmt.Sprintf("%s(%s)@%d", t.Kind, t.Text, t.Pos)
}

// IsOperator reports whether the token is any operator, including the unary
// "not".
func (t Token) IsOperator() bool {
	switch t.Kind {
	case Comparison, Membership, StringOp, Logical:
		return true
	}
	return false
}

// IsNot reports whether the token is the unary negation keyword.
func (t Token) IsNot() bool {
	return t.Kind == Logical && t.Text == "not"
}

// IsLiteral reports whether the token is a string, number, bool or null
// literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case String, Number, Bool, Null:
		return true
	}
	return false
}

// keywords maps reserved words to the token kind they produce.
var keywords = map[string]Kind{
	"in":          Membership,
	"not":         Logical,
	"and":         Logical,
	"or":          Logical,
	"contains":    StringOp,
	"starts_with": StringOp,
	"ends_with":   StringOp,
	"true":        Bool,
	"false":       Bool,
	"null":        Null,
}
