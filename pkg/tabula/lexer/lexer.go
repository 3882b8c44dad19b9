package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT     // users, name, t
	INT_LIT   // 1343456
	FLOAT_LIT // 3.14159
	STRING    // 'foobar'

	// Operators
	EQ       // =
	NOT_EQ   // !=
	GT       // >
	LT       // <
	GTE      // >=
	LTE      // <=
	PLUS     // +
	MINUS    // -
	ASTERISK // *
	SLASH    // /
	DOT      // .

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )

	// Keywords
	SELECT
	FROM
	WHERE
	INSERT
	INTO
	VALUES
	UPDATE
	SET
	DELETE
	CREATE
	TABLE
	DROP
	JOIN
	ON
	AND
	OR
	NOT
	NULL

	// Column type keywords
	INT
	TEXT
	FLOAT
	DATE
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based
	Column  int // 0-based
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case INT_LIT:
		return "INT_LIT"
	case FLOAT_LIT:
		return "FLOAT_LIT"
	case STRING:
		return "STRING"
	case EQ:
		return "EQ"
	case NOT_EQ:
		return "NOT_EQ"
	case GT:
		return "GT"
	case LT:
		return "LT"
	case GTE:
		return "GTE"
	case LTE:
		return "LTE"
	case PLUS:
		return "PLUS"
	case MINUS:
		return "MINUS"
	case ASTERISK:
		return "ASTERISK"
	case SLASH:
		return "SLASH"
	case DOT:
		return "DOT"
	case COMMA:
		return "COMMA"
	case SEMICOLON:
		return "SEMICOLON"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case SELECT:
		return "SELECT"
	case FROM:
		return "FROM"
	case WHERE:
		return "WHERE"
	case INSERT:
		return "INSERT"
	case INTO:
		return "INTO"
	case VALUES:
		return "VALUES"
	case UPDATE:
		return "UPDATE"
	case SET:
		return "SET"
	case DELETE:
		return "DELETE"
	case CREATE:
		return "CREATE"
	case TABLE:
		return "TABLE"
	case DROP:
		return "DROP"
	case JOIN:
		return "JOIN"
	case ON:
		return "ON"
	case AND:
		return "AND"
	case OR:
		return "OR"
	case NOT:
		return "NOT"
	case NULL:
		return "NULL"
	case INT:
		return "INT"
	case TEXT:
		return "TEXT"
	case FLOAT:
		return "FLOAT"
	case DATE:
		return "DATE"
	default:
		return "UNKNOWN"
	}
}

// IsKeyword reports whether the token type is a reserved word.
func (tt TokenType) IsKeyword() bool {
	return tt >= SELECT && tt <= DATE
}

// IsColumnType reports whether the token type names a column type.
func (tt TokenType) IsColumnType() bool {
	return tt >= INT && tt <= DATE
}

// Symbol returns the canonical SQL spelling of operators, delimiters and keywords.
func (tt TokenType) Symbol() string {
	switch tt {
	case EQ:
		return "="
	case NOT_EQ:
		return "!="
	case GT:
		return ">"
	case LT:
		return "<"
	case GTE:
		return ">="
	case LTE:
		return "<="
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case ASTERISK:
		return "*"
	case SLASH:
		return "/"
	case DOT:
		return "."
	case COMMA:
		return ","
	case SEMICOLON:
		return ";"
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	}
	return tt.String()
}

// keywords maps lower-cased reserved words to their token types
var keywords = map[string]TokenType{
	"select": SELECT,
	"from":   FROM,
	"where":  WHERE,
	"insert": INSERT,
	"into":   INTO,
	"values": VALUES,
	"update": UPDATE,
	"set":    SET,
	"delete": DELETE,
	"create": CREATE,
	"table":  TABLE,
	"drop":   DROP,
	"join":   JOIN,
	"on":     ON,
	"and":    AND,
	"or":     OR,
	"not":    NOT,
	"null":   NULL,
	"int":    INT,
	"text":   TEXT,
	"float":  FLOAT,
	"date":   DATE,
}

// LookupIdent checks if an identifier is a keyword. Matching is case-insensitive.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // line of the current char (1-based)
	column       int  // column of the current char (0-based)
	errors       []*terrors.TabulaError
}

// New creates a new lexer instance
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// Errors returns the lexical errors recorded so far.
func (l *Lexer) Errors() []*terrors.TabulaError {
	return l.errors
}

// ErrorAt returns the lexical error recorded for an ILLEGAL token, if any.
func (l *Lexer) ErrorAt(tok Token) *terrors.TabulaError {
	for _, err := range l.errors {
		if err.Line == tok.Line && err.Column == tok.Column {
			return err
		}
	}
	return nil
}

// readChar reads the next character and advances position.
// Line and column always describe l.ch.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else if l.readPosition > 0 {
		l.column++
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL character represents EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// atEOF reports whether the whole input has been consumed
func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	var tok Token

	if illegal, ok := l.skipWhitespaceAndComments(); !ok {
		return illegal
	}

	line, column := l.line, l.column

	switch l.ch {
	case '=':
		tok = newToken(EQ, l.ch, line, column)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: NOT_EQ, Literal: "!=", Line: line, Column: column}
		} else {
			tok = l.illegalChar(line, column)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: GTE, Literal: ">=", Line: line, Column: column}
		} else {
			tok = newToken(GT, l.ch, line, column)
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: LTE, Literal: "<=", Line: line, Column: column}
		} else {
			tok = newToken(LT, l.ch, line, column)
		}
	case '+':
		tok = newToken(PLUS, l.ch, line, column)
	case '-':
		tok = newToken(MINUS, l.ch, line, column)
	case '*':
		tok = newToken(ASTERISK, l.ch, line, column)
	case '/':
		tok = newToken(SLASH, l.ch, line, column)
	case '.':
		if isDigit(l.peekChar()) {
			// .5 is not a valid number; report it rather than lexing DOT INT
			return l.readMalformedNumber(l.position, line, column)
		}
		tok = newToken(DOT, l.ch, line, column)
	case ',':
		tok = newToken(COMMA, l.ch, line, column)
	case ';':
		tok = newToken(SEMICOLON, l.ch, line, column)
	case '(':
		tok = newToken(LPAREN, l.ch, line, column)
	case ')':
		tok = newToken(RPAREN, l.ch, line, column)
	case '\'':
		return l.readString(line, column)
	case 0:
		if l.atEOF() {
			return Token{Type: EOF, Literal: "", Line: line, Column: column}
		}
		tok = l.illegalChar(line, column)
	default:
		if isLetter(l.ch) {
			literal := l.readIdentifier()
			return Token{Type: LookupIdent(literal), Literal: literal, Line: line, Column: column}
		} else if isDigit(l.ch) {
			return l.readNumber(line, column)
		}
		tok = l.illegalChar(line, column)
	}

	l.readChar()
	return tok
}

// newToken creates a new token with the given parameters
func newToken(tokenType TokenType, ch byte, line, column int) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: line, Column: column}
}

// illegalChar records an error for an unrecognised character.
func (l *Lexer) illegalChar(line, column int) Token {
	r, size := utf8.DecodeRuneInString(l.input[l.position:])
	for i := 1; i < size; i++ {
		l.readChar()
	}
	ch := string(r)
	l.addError("LEX-0001", line, column, map[string]any{"Char": ch})
	return Token{Type: ILLEGAL, Literal: ch, Line: line, Column: column}
}

func (l *Lexer) addError(code string, line, column int, data map[string]any) {
	l.errors = append(l.errors, terrors.NewWithPosition(code, line, column, data))
}

// skipWhitespaceAndComments skips blanks, -- line comments and /* */ block comments.
// It returns false with an ILLEGAL token when a block comment is never closed.
func (l *Lexer) skipWhitespaceAndComments() (Token, bool) {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			line, column := l.line, l.column
			l.readChar() // consume '/'
			l.readChar() // consume '*'
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.atEOF() {
					l.addError("LEX-0004", line, column, nil)
					return Token{Type: ILLEGAL, Literal: "/*", Line: line, Column: column}, false
				}
				l.readChar()
			}
			l.readChar() // consume '*'
			l.readChar() // consume '/'
		default:
			return Token{}, true
		}
	}
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an integer or float literal.
// A decimal point must be followed by at least one digit and may appear once.
func (l *Lexer) readNumber(line, column int) Token {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch != '.' {
		return Token{Type: INT_LIT, Literal: l.input[position:l.position], Line: line, Column: column}
	}

	if !isDigit(l.peekChar()) {
		return l.readMalformedNumber(position, line, column)
	}

	l.readChar() // consume the '.'
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' {
		return l.readMalformedNumber(position, line, column)
	}

	return Token{Type: FLOAT_LIT, Literal: l.input[position:l.position], Line: line, Column: column}
}

// readMalformedNumber consumes the rest of a bad numeric literal and reports it.
func (l *Lexer) readMalformedNumber(start, line, column int) Token {
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	literal := l.input[start:l.position]
	l.addError("LEX-0003", line, column, map[string]any{"Literal": literal})
	return Token{Type: ILLEGAL, Literal: literal, Line: line, Column: column}
}

// readString reads a single-quoted string literal. There are no escape sequences.
// An unterminated string is reported at the position of its opening quote.
func (l *Lexer) readString(line, column int) Token {
	l.readChar() // skip opening quote
	position := l.position

	for l.ch != '\'' {
		if l.atEOF() {
			l.addError("LEX-0002", line, column, nil)
			return Token{Type: ILLEGAL, Literal: "'" + l.input[position:], Line: line, Column: column}
		}
		l.readChar()
	}

	value := l.input[position:l.position]
	l.readChar() // skip closing quote
	return Token{Type: STRING, Literal: value, Line: line, Column: column}
}

// isLetter checks if a byte can start or continue an identifier
func isLetter(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isDigit checks if the character is a digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// Tokenize returns the full token stream for input, excluding the final EOF.
// The returned error is the first lexical error, if any; tokens are still returned.
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		tokens = append(tokens, tok)
	}
	if errs := l.Errors(); len(errs) > 0 {
		return tokens, errs[0]
	}
	return tokens, nil
}
