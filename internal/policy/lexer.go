package policy

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"
)

// LexError reports the first character run the lexer could not recognize.
type LexError struct {
	Pos        int
	Msg        string
	Suggestion string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("position %d: %s", e.Pos, e.Msg)
}

// Lexer turns a policy expression into tokens on demand. It is single-pass:
// once it has returned EOF or an error it keeps returning the same outcome.
type Lexer struct {
	src string
	pos int
	err error
	eof bool
}

// NewLexer creates a lexer over expr.
func NewLexer(expr string) *Lexer {
	return &Lexer{src: expr}
}

// Next returns the next token. At the end of input it returns a token of kind
// EOF. The first unrecognized input yields a *LexError.
func (l *Lexer) Next() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	if l.eof {
		return Token{Kind: EOF, Pos: len(l.src)}, nil
	}
	tok, err := l.scan()
	if err != nil {
		l.err = err
		return Token{}, err
	}
	if tok.Kind == EOF {
		l.eof = true
	}
	return tok, nil
}

// All exposes the remaining tokens as a lazy sequence. EOF is not yielded.
// A lexing failure is yielded once as the final element.
func (l *Lexer) All() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, err := l.Next()
			if err != nil {
				yield(Token{}, err)
				return
			}
			if tok.Kind == EOF {
				return
			}
			if !yield(tok, nil) {
				return
			}
		}
	}
}

// Tokenize lexes the whole expression.
func Tokenize(expr string) ([]Token, error) {
	var tokens []Token
	for tok, err := range NewLexer(expr).All() {
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func (l *Lexer) fail(pos int, suggestion, format string, args ...any) (Token, error) {
	return Token{}, &LexError{Pos: pos, Msg: fmt.Sprintf(format, args...), Suggestion: suggestion}
}

func (l *Lexer) peek(offset int) byte {
	if i := l.pos + offset; i < len(l.src) {
		return l.src[i]
	}
	return 0
}

func (l *Lexer) emit(kind Kind, width int) (Token, error) {
	tok := Token{Kind: kind, Text: l.src[l.pos : l.pos+width], Pos: l.pos}
	l.pos += width
	return tok, nil
}

func (l *Lexer) scan() (Token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Pos: len(l.src)}, nil
	}

	c := l.src[l.pos]
	switch c {
	case '(':
		return l.emit(ParenOpen, 1)
	case ')':
		return l.emit(ParenClose, 1)
	case '[':
		return l.emit(ListOpen, 1)
	case ']':
		return l.emit(ListClose, 1)
	case ',':
		return l.emit(Comma, 1)
	case '\'':
		return l.scanString()
	case '"':
		return l.fail(l.pos, "use single quotes for string literals", "double-quoted string literals are not supported")
	case '=':
		if l.peek(1) == '=' {
			if l.peek(2) == '=' {
				return l.fail(l.pos, "use '==' for equality", "invalid operator '==='")
			}
			return l.emit(Comparison, 2)
		}
		return l.fail(l.pos, "use '==' for comparison", "invalid operator '='")
	case '!':
		switch next := l.peek(1); {
		case next == '=' || next == '~':
			return l.emit(Comparison, 2)
		case isIdentStart(next):
			end := l.pos + 1
			for end < len(l.src) && isIdentChar(l.src[end]) {
				end++
			}
			return l.fail(l.pos, "use the 'not' keyword for negation",
				"invalid negation prefix in '%s': '!' may not prefix a variable", l.src[l.pos:end])
		default:
			return l.fail(l.pos, "use the 'not' keyword for negation", "invalid operator '!'")
		}
	case '>', '<':
		if l.peek(1) == '=' {
			return l.emit(Comparison, 2)
		}
		return l.emit(Comparison, 1)
	case '~':
		return l.emit(Comparison, 1)
	case '&':
		if l.peek(1) == '&' {
			return l.emit(Logical, 2)
		}
		return l.fail(l.pos, "use '&&' for logical and", "invalid operator '&'")
	case '|':
		if l.peek(1) == '|' {
			return l.emit(Logical, 2)
		}
		return l.fail(l.pos, "use '||' for logical or", "invalid operator '|'")
	}

	if isDigit(c) || (c == '-' && isDigit(l.peek(1))) {
		return l.scanNumber()
	}
	if isIdentStart(c) {
		return l.scanWord()
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return l.fail(l.pos, "", "unexpected character %q", r)
}

func (l *Lexer) scanString() (Token, error) {
	start := l.pos
	var sb strings.Builder
	i := l.pos + 1
	for i < len(l.src) {
		switch c := l.src[i]; c {
		case '\\':
			if i+1 >= len(l.src) {
				return l.fail(start, "close the string with a single quote", "unterminated string literal")
			}
			// Only quote and backslash are unescaped; other sequences are kept
			// verbatim so regex patterns survive.
			if next := l.src[i+1]; next != '\'' && next != '\\' {
				sb.WriteByte(c)
			}
			sb.WriteByte(l.src[i+1])
			i += 2
		case '\'':
			l.pos = i + 1
			return Token{Kind: String, Text: sb.String(), Pos: start}, nil
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return l.fail(start, "close the string with a single quote", "unterminated string literal")
}

func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos
	i := l.pos
	if l.src[i] == '-' {
		i++
	}
	for i < len(l.src) && isDigit(l.src[i]) {
		i++
	}
	if i+1 < len(l.src) && l.src[i] == '.' && isDigit(l.src[i+1]) {
		i++
		for i < len(l.src) && isDigit(l.src[i]) {
			i++
		}
	}
	if i < len(l.src) && isIdentChar(l.src[i]) {
		end := i
		for end < len(l.src) && isIdentChar(l.src[end]) {
			end++
		}
		return l.fail(start, "", "malformed number '%s'", l.src[start:end])
	}
	l.pos = i
	return Token{Kind: Number, Text: l.src[start:i], Pos: start}, nil
}

func (l *Lexer) scanWord() (Token, error) {
	start := l.pos
	i := l.pos
	for i < len(l.src) && isIdentChar(l.src[i]) {
		i++
	}
	word := l.src[start:i]
	kind, reserved := keywords[word]
	if !reserved {
		l.pos = i
		return Token{Kind: Variable, Text: word, Pos: start}, nil
	}

	// "not in" is a single membership operator.
	if word == "not" {
		j := i
		for j < len(l.src) && isSpace(l.src[j]) {
			j++
		}
		if j > i && strings.HasPrefix(l.src[j:], "in") && (j+2 == len(l.src) || !isIdentChar(l.src[j+2])) {
			l.pos = j + 2
			return Token{Kind: Membership, Text: "not in", Pos: start}, nil
		}
	}
	l.pos = i
	return Token{Kind: kind, Text: word, Pos: start}, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}
