package parser

import (
	"fmt"
	"strconv"

	"github.com/sambeau/tabula/pkg/tabula/ast"
	terrors "github.com/sambeau/tabula/pkg/tabula/errors"
	"github.com/sambeau/tabula/pkg/tabula/lexer"
)

// Precedence levels for operators
const (
	_ int = iota
	LOWEST
	LOGIC_OR  // OR
	LOGIC_AND // AND
	LOGIC_NOT // NOT x
	COMPARE   // = != > < >= <=
	SUM       // + -
	PRODUCT   // * /
	PREFIX    // -x
	QUALIFIER // t.col
)

// precedences maps tokens to their precedence
var precedences = map[lexer.TokenType]int{
	lexer.OR:       LOGIC_OR,
	lexer.AND:      LOGIC_AND,
	lexer.EQ:       COMPARE,
	lexer.NOT_EQ:   COMPARE,
	lexer.GT:       COMPARE,
	lexer.LT:       COMPARE,
	lexer.GTE:      COMPARE,
	lexer.LTE:      COMPARE,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.ASTERISK: PRODUCT,
	lexer.SLASH:    PRODUCT,
	lexer.DOT:      QUALIFIER,
}

// statementKeywords are offered as suggestions when a statement starts with a typo
var statementKeywords = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP"}

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	structuredErrors []*terrors.TabulaError

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l: l,
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT_LIT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT_LIT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.NULL, p.parseNullLiteral)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.NOT, p.parseNotCondition)
	p.registerPrefix(lexer.MINUS, p.parseNegation)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	p.registerInfix(lexer.PLUS, p.parseBinaryExpression)
	p.registerInfix(lexer.MINUS, p.parseBinaryExpression)
	p.registerInfix(lexer.ASTERISK, p.parseBinaryExpression)
	p.registerInfix(lexer.SLASH, p.parseBinaryExpression)
	p.registerInfix(lexer.DOT, p.parseQualifiedName)
	p.registerInfix(lexer.EQ, p.parseComparison)
	p.registerInfix(lexer.NOT_EQ, p.parseComparison)
	p.registerInfix(lexer.GT, p.parseComparison)
	p.registerInfix(lexer.LT, p.parseComparison)
	p.registerInfix(lexer.GTE, p.parseComparison)
	p.registerInfix(lexer.LTE, p.parseComparison)
	p.registerInfix(lexer.AND, p.parseLogicalCondition)
	p.registerInfix(lexer.OR, p.parseLogicalCondition)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns parser errors as strings (convenience method for tests).
// Prefer StructuredErrors() for production code.
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		if err.Line > 0 {
			result[i] = fmt.Sprintf("line %d, column %d: %s", err.Line, err.Column, err.Message)
		} else {
			result[i] = err.Message
		}
	}
	return result
}

// StructuredErrors returns parser errors as structured TabulaError objects.
func (p *Parser) StructuredErrors() []*terrors.TabulaError {
	return p.structuredErrors
}

// Err returns the first error, or nil.
func (p *Parser) Err() error {
	if len(p.structuredErrors) == 0 {
		return nil
	}
	return p.structuredErrors[0]
}

// CurToken returns the token the parser is positioned on. After ParseStatement
// this is the first token that is not part of the statement.
func (p *Parser) CurToken() lexer.Token {
	return p.curToken
}

// SkipSemicolon consumes one statement terminator if the parser is positioned on it.
func (p *Parser) SkipSemicolon() {
	if p.curTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
}

// addError records an error against a token.
// Only the first error is recorded - subsequent errors are usually cascading noise.
// An ILLEGAL token reports the lexical error the lexer recorded for it.
func (p *Parser) addError(tok lexer.Token, code string, data map[string]any, hints ...string) {
	if len(p.structuredErrors) > 0 {
		return
	}

	if tok.Type == lexer.ILLEGAL {
		if lexErr := p.l.ErrorAt(tok); lexErr != nil {
			p.structuredErrors = append(p.structuredErrors, lexErr)
			return
		}
	}

	if data == nil {
		data = map[string]any{}
	}
	data["Kind"] = tok.Type.String()
	data["Literal"] = tok.Literal
	data["Got"] = describeToken(tok)

	err := terrors.NewWithPosition(code, tok.Line, tok.Column, data)
	if len(hints) > 0 {
		err = err.WithHints(hints...)
	}
	p.structuredErrors = append(p.structuredErrors, err)
}

// registerPrefix registers a prefix parse function
func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

// registerInfix registers an infix parse function
func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// nextToken advances prevToken, curToken, and peekToken
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// ParseStatement parses exactly one statement starting at the current token.
// It returns nil when an error was recorded. Tokens after the statement,
// including a terminating semicolon, are left unconsumed.
func (p *Parser) ParseStatement() ast.Statement {
	var stmt ast.Statement

	switch p.curToken.Type {
	case lexer.SELECT:
		if s := p.parseSelectStatement(); s != nil {
			stmt = s
		}
	case lexer.INSERT:
		if s := p.parseInsertStatement(); s != nil {
			stmt = s
		}
	case lexer.UPDATE:
		if s := p.parseUpdateStatement(); s != nil {
			stmt = s
		}
	case lexer.DELETE:
		if s := p.parseDeleteStatement(); s != nil {
			stmt = s
		}
	case lexer.CREATE:
		if s := p.parseCreateStatement(); s != nil {
			stmt = s
		}
	case lexer.DROP:
		if s := p.parseDropStatement(); s != nil {
			stmt = s
		}
	case lexer.EOF:
		p.addError(p.curToken, "SYN-0006", nil)
	case lexer.IDENT:
		var hints []string
		if suggestion := terrors.FindClosestMatch(p.curToken.Literal, statementKeywords); suggestion != "" {
			hints = append(hints, "Did you mean `"+suggestion+"`?")
		}
		p.addError(p.curToken, "SYN-0003", nil, hints...)
	default:
		p.addError(p.curToken, "SYN-0003", nil)
	}

	if stmt == nil || len(p.structuredErrors) > 0 {
		return nil
	}

	// step past the statement's last token
	p.nextToken()
	return stmt
}

// ============================================================================
// Statements
// ============================================================================

// parseSelectStatement parses SELECT <cols|*> FROM <tables> [JOIN t ON c ...] [WHERE c]
func (p *Parser) parseSelectStatement() *ast.SelectStatement {
	stmt := &ast.SelectStatement{Token: p.curToken}

	p.nextToken()
	col := p.parseProjection()
	if col == nil {
		return nil
	}
	stmt.Columns = append(stmt.Columns, col)

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		col := p.parseProjection()
		if col == nil {
			return nil
		}
		stmt.Columns = append(stmt.Columns, col)
	}

	if !p.expectPeek(lexer.FROM) {
		return nil
	}

	tables := p.parseIdentifierList()
	if tables == nil {
		return nil
	}
	stmt.Tables = tables

	for p.peekTokenIs(lexer.JOIN) {
		p.nextToken()
		join := &ast.Join{Token: p.curToken}
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		join.Table = p.newIdentifier()
		if !p.expectPeek(lexer.ON) {
			return nil
		}
		p.nextToken()
		join.Condition = p.parseCondition()
		if join.Condition == nil {
			return nil
		}
		stmt.Joins = append(stmt.Joins, join)
	}

	if p.peekTokenIs(lexer.WHERE) {
		stmt.Where = p.parseWhere()
		if stmt.Where == nil {
			return nil
		}
	}

	return stmt
}

// parseProjection parses one SELECT list item; * is only valid here.
func (p *Parser) parseProjection() ast.Expression {
	if p.curTokenIs(lexer.ASTERISK) {
		return &ast.Identifier{Token: p.curToken, Value: "*"}
	}
	return p.parseExpression(LOWEST)
}

// parseInsertStatement parses INSERT INTO <table> [(<cols>)] VALUES (<exprs>)
func (p *Parser) parseInsertStatement() *ast.InsertStatement {
	stmt := &ast.InsertStatement{Token: p.curToken}

	if !p.expectPeek(lexer.INTO) {
		return nil
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Table = p.newIdentifier()

	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		cols := p.parseIdentifierList()
		if cols == nil {
			return nil
		}
		stmt.Columns = cols
		if !p.expectPeek(lexer.RPAREN) {
			return nil
		}
	}

	if !p.expectPeek(lexer.VALUES) {
		return nil
	}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}

	values := p.parseExpressionList()
	if values == nil {
		return nil
	}
	stmt.Values = values

	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}

	return stmt
}

// parseUpdateStatement parses UPDATE <table> SET <col> = <expr>[, ...] [WHERE c]
func (p *Parser) parseUpdateStatement() *ast.UpdateStatement {
	stmt := &ast.UpdateStatement{Token: p.curToken}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Table = p.newIdentifier()

	if !p.expectPeek(lexer.SET) {
		return nil
	}

	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		column := p.newIdentifier()
		if !p.expectPeek(lexer.EQ) {
			return nil
		}
		clause := &ast.SetClause{Token: p.curToken, Column: column}
		p.nextToken()
		clause.Value = p.parseExpression(LOWEST)
		if clause.Value == nil {
			return nil
		}
		stmt.Set = append(stmt.Set, clause)

		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}

	if p.peekTokenIs(lexer.WHERE) {
		stmt.Where = p.parseWhere()
		if stmt.Where == nil {
			return nil
		}
	}

	return stmt
}

// parseDeleteStatement parses DELETE FROM <table> [WHERE c]
func (p *Parser) parseDeleteStatement() *ast.DeleteStatement {
	stmt := &ast.DeleteStatement{Token: p.curToken}

	if !p.expectPeek(lexer.FROM) {
		return nil
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Table = p.newIdentifier()

	if p.peekTokenIs(lexer.WHERE) {
		stmt.Where = p.parseWhere()
		if stmt.Where == nil {
			return nil
		}
	}

	return stmt
}

// parseCreateStatement parses CREATE TABLE <table> (<col> <type>[, ...]) ['title']
func (p *Parser) parseCreateStatement() *ast.CreateStatement {
	stmt := &ast.CreateStatement{Token: p.curToken}

	if !p.expectPeek(lexer.TABLE) {
		return nil
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Table = p.newIdentifier()

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}

	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		def := &ast.ColumnDefinition{Token: p.curToken, Name: p.newIdentifier()}

		if !p.peekToken.Type.IsColumnType() {
			p.addError(p.peekToken, "SYN-0005", nil)
			return nil
		}
		p.nextToken()
		def.Type = p.curToken.Type
		stmt.Columns = append(stmt.Columns, def)

		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}

	if p.peekTokenIs(lexer.STRING) {
		p.nextToken()
		stmt.Title = p.curToken.Literal
	}

	return stmt
}

// parseDropStatement parses DROP TABLE <table>
func (p *Parser) parseDropStatement() *ast.DropStatement {
	stmt := &ast.DropStatement{Token: p.curToken}

	if !p.expectPeek(lexer.TABLE) {
		return nil
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Table = p.newIdentifier()

	return stmt
}

// parseWhere consumes WHERE (the peek token) and the condition after it.
func (p *Parser) parseWhere() *ast.Condition {
	p.nextToken()
	p.nextToken()
	return p.parseCondition()
}

// parseCondition parses a predicate. A bare expression is wrapped in a
// Condition without an operator so that WHERE and ON always hold a Condition.
func (p *Parser) parseCondition() *ast.Condition {
	tok := p.curToken
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if cond, ok := exp.(*ast.Condition); ok {
		return cond
	}
	return &ast.Condition{Token: tok, Left: exp}
}

// parseIdentifierList parses ident[, ident...] starting at the peek token.
func (p *Parser) parseIdentifierList() []*ast.Identifier {
	var idents []*ast.Identifier

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	idents = append(idents, p.newIdentifier())

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		idents = append(idents, p.newIdentifier())
	}

	return idents
}

// parseExpressionList parses expr[, expr...] starting at the peek token.
func (p *Parser) parseExpressionList() []ast.Expression {
	var list []ast.Expression

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	list = append(list, exp)

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		exp := p.parseExpression(LOWEST)
		if exp == nil {
			return nil
		}
		list = append(list, exp)
	}

	return list
}

func (p *Parser) newIdentifier() *ast.Identifier {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

// ============================================================================
// Expressions
// ============================================================================

// parseExpression parses expressions using Pratt parsing
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError()
		return nil
	}

	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return p.newIdentifier()
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.addError(p.curToken, "SYN-0007", nil)
		return nil
	}
	return &ast.Literal{Token: p.curToken, Value: value, ValueType: lexer.INT_LIT}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken, "SYN-0002", nil)
		return nil
	}
	return &ast.Literal{Token: p.curToken, Value: value, ValueType: lexer.FLOAT_LIT}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.Literal{Token: p.curToken, Value: p.curToken.Literal, ValueType: lexer.STRING}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.Literal{Token: p.curToken, Value: nil, ValueType: lexer.NULL}
}

// parseNegation handles a leading minus. Before a numeric literal it folds
// into a negative literal; otherwise -x becomes 0 - x.
func (p *Parser) parseNegation() ast.Expression {
	minus := p.curToken

	switch p.peekToken.Type {
	case lexer.INT_LIT:
		p.nextToken()
		tok := p.curToken
		tok.Literal = "-" + tok.Literal
		tok.Line, tok.Column = minus.Line, minus.Column
		value, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.addError(tok, "SYN-0007", nil)
			return nil
		}
		return &ast.Literal{Token: tok, Value: value, ValueType: lexer.INT_LIT}
	case lexer.FLOAT_LIT:
		p.nextToken()
		tok := p.curToken
		tok.Literal = "-" + tok.Literal
		tok.Line, tok.Column = minus.Line, minus.Column
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addError(tok, "SYN-0002", nil)
			return nil
		}
		return &ast.Literal{Token: tok, Value: value, ValueType: lexer.FLOAT_LIT}
	}

	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	zero := &ast.Literal{
		Token:     lexer.Token{Type: lexer.INT_LIT, Literal: "0", Line: minus.Line, Column: minus.Column},
		Value:     int64(0),
		ValueType: lexer.INT_LIT,
	}
	return &ast.BinaryExpression{Token: minus, Left: zero, Operator: lexer.MINUS, Right: operand}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()

	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}

	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}

	return exp
}

func (p *Parser) parseNotCondition() ast.Expression {
	cond := &ast.Condition{Token: p.curToken, Operator: lexer.NOT}

	p.nextToken()
	cond.Right = p.parseExpression(LOGIC_NOT)
	if cond.Right == nil {
		return nil
	}

	return cond
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	expression := &ast.BinaryExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Type,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

// parseQualifiedName parses table.column. Only an identifier may follow the dot.
func (p *Parser) parseQualifiedName(left ast.Expression) ast.Expression {
	expression := &ast.BinaryExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: lexer.DOT,
	}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	expression.Right = p.newIdentifier()

	return expression
}

// parseComparison parses a single comparison. Comparisons do not associate,
// so a second comparison operator directly after the right operand is an error.
func (p *Parser) parseComparison(left ast.Expression) ast.Expression {
	cond := &ast.Condition{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Type,
	}

	p.nextToken()
	cond.Right = p.parseExpression(COMPARE)
	if cond.Right == nil {
		return nil
	}

	if ast.IsComparisonOperator(p.peekToken.Type) {
		p.addError(p.peekToken, "SYN-0004", nil)
		return nil
	}

	return cond
}

func (p *Parser) parseLogicalCondition(left ast.Expression) ast.Expression {
	cond := &ast.Condition{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Type,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	cond.Right = p.parseExpression(precedence)
	if cond.Right == nil {
		return nil
	}

	return cond
}

// Helper functions
func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	var hints []string
	if t.IsKeyword() && p.peekTokenIs(lexer.IDENT) {
		if suggestion := terrors.FindClosestMatch(p.peekToken.Literal, []string{t.String()}); suggestion != "" {
			hints = append(hints, "Did you mean `"+suggestion+"`?")
		}
	}
	p.addError(p.peekToken, "SYN-0001", map[string]any{"Expected": tokenTypeToReadableName(t)}, hints...)
}

func (p *Parser) noPrefixParseFnError() {
	p.addError(p.curToken, "SYN-0002", nil)
}

// tokenTypeToReadableName names a token type for error messages
func tokenTypeToReadableName(t lexer.TokenType) string {
	switch t {
	case lexer.IDENT:
		return "identifier"
	case lexer.INT_LIT:
		return "integer"
	case lexer.FLOAT_LIT:
		return "float"
	case lexer.STRING:
		return "string"
	case lexer.EOF:
		return "end of input"
	case lexer.ILLEGAL:
		return "illegal character"
	}
	if t.IsKeyword() {
		return t.String()
	}
	return "'" + t.Symbol() + "'"
}

// describeToken renders the offending token, e.g. "identifier 'nme'" or "end of input".
func describeToken(tok lexer.Token) string {
	name := tokenTypeToReadableName(tok.Type)
	switch {
	case tok.Type == lexer.EOF:
		return name
	case tok.Type.IsKeyword():
		return "keyword " + tok.Literal
	case tok.Type == lexer.IDENT || tok.Type == lexer.INT_LIT || tok.Type == lexer.FLOAT_LIT:
		return name + " " + tok.Literal
	case tok.Type == lexer.STRING:
		return "string '" + tok.Literal + "'"
	default:
		return name
	}
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return LOWEST
}

// Parse parses input that must contain exactly one statement, optionally
// terminated by a semicolon.
func Parse(input string) (ast.Statement, error) {
	stmt, extra, err := ParseFirst(input)
	if err != nil {
		return nil, err
	}
	if extra != nil {
		return nil, terrors.NewWithPosition("SYN-0002", extra.Line, extra.Column, map[string]any{
			"Kind":    extra.Type.String(),
			"Literal": extra.Literal,
			"Got":     describeToken(*extra),
		})
	}
	return stmt, nil
}

// ParseFirst parses the first statement of input and an optional semicolon.
// When tokens remain after that, extra is the first of them.
func ParseFirst(input string) (stmt ast.Statement, extra *lexer.Token, err error) {
	l := lexer.New(input)
	p := New(l)

	stmt = p.ParseStatement()
	if err := p.Err(); err != nil {
		return nil, nil, err
	}

	p.SkipSemicolon()
	if !p.curTokenIs(lexer.EOF) {
		tok := p.curToken
		if tok.Type == lexer.ILLEGAL {
			if lexErr := l.ErrorAt(tok); lexErr != nil {
				return nil, nil, lexErr
			}
		}
		extra = &tok
	}

	return stmt, extra, nil
}

// ParseScript parses every ';'-separated statement in input. It stops at
// the first error.
func ParseScript(input string) ([]ast.Statement, error) {
	p := New(lexer.New(input))

	var stmts []ast.Statement
	for !p.curTokenIs(lexer.EOF) {
		stmt := p.ParseStatement()
		if err := p.Err(); err != nil {
			return stmts, err
		}
		stmts = append(stmts, stmt)
		p.SkipSemicolon()
	}
	return stmts, nil
}
