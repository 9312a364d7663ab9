package ast

import "github.com/mim-lang/mim/internal/lexer"

// Node represents any AST node with an associated source range. The set of
// implementations is closed; nodes are immutable once built.
type Node interface {
	Range() lexer.Range
	node()
}

// NumberLiteral is an integer or float literal. IsFloat is carried from the
// lexer unchanged.
type NumberLiteral struct {
	Raw     string
	Int     int64
	Float   float64
	IsFloat bool
	rng     lexer.Range
}

// NewIntLiteral constructs an integer literal node.
func NewIntLiteral(raw string, v int64, rng lexer.Range) *NumberLiteral {
	return &NumberLiteral{Raw: raw, Int: v, rng: rng}
}

// NewFloatLiteral constructs a float literal node.
func NewFloatLiteral(raw string, v float64, rng lexer.Range) *NumberLiteral {
	return &NumberLiteral{Raw: raw, Float: v, IsFloat: true, rng: rng}
}

func (n *NumberLiteral) Range() lexer.Range { return n.rng }
func (*NumberLiteral) node() {}

// StringLiteral is a decoded "..." string or a verbatim '...' raw string.
type StringLiteral struct {
	Text  string
	IsRaw bool
	rng   lexer.Range
}

// NewStringLiteral constructs a string literal node.
func NewStringLiteral(text string, isRaw bool, rng lexer.Range) *StringLiteral {
	return &StringLiteral{Text: text, IsRaw: isRaw, rng: rng}
}

func (n *StringLiteral) Range() lexer.Range { return n.rng }
func (*StringLiteral) node() {}

// Identifier references a binding by name.
type Identifier struct {
	Name string
	rng  lexer.Range
}

// NewIdentifier constructs an identifier node.
func NewIdentifier(name string, rng lexer.Range) *Identifier {
	return &Identifier{Name: name, rng: rng}
}

func (n *Identifier) Range() lexer.Range { return n.rng }
func (*Identifier) node() {}

// ParenExpr is a parenthesized expression. It stops precedence rotation.
type ParenExpr struct {
	Inner Node
	rng   lexer.Range
}

// NewParenExpr constructs a parenthesized expression node.
func NewParenExpr(inner Node, rng lexer.Range) *ParenExpr {
	return &ParenExpr{Inner: inner, rng: rng}
}

func (n *ParenExpr) Range() lexer.Range { return n.rng }
func (*ParenExpr) node() {}

// UnaryOp is a prefix (`!x`, `-x`, `++x`) or postfix (`x--`) operation.
type UnaryOp struct {
	Op      string
	Operand Node
	Prefix  bool
	rng     lexer.Range
}

// NewUnaryOp constructs a unary operation node.
func NewUnaryOp(op string, operand Node, prefix bool, rng lexer.Range) *UnaryOp {
	return &UnaryOp{Op: op, Operand: operand, Prefix: prefix, rng: rng}
}

func (n *UnaryOp) Range() lexer.Range { return n.rng }
func (*UnaryOp) node() {}

// BinaryOp is `Lhs Op Rhs`. Chains produced by the parser lean right; the
// interpreter rotates them according to operator precedence.
type BinaryOp struct {
	Lhs Node
	Op  string
	Rhs Node
	rng lexer.Range
}

// NewBinaryOp constructs a binary operation node.
func NewBinaryOp(lhs Node, op string, rhs Node, rng lexer.Range) *BinaryOp {
	return &BinaryOp{Lhs: lhs, Op: op, Rhs: rhs, rng: rng}
}

func (n *BinaryOp) Range() lexer.Range { return n.rng }
func (*BinaryOp) node() {}

// Statement is an expression terminated by `;`.
type Statement struct {
	Inner Node
	rng   lexer.Range
}

// NewStatement constructs a statement node.
func NewStatement(inner Node, rng lexer.Range) *Statement {
	return &Statement{Inner: inner, rng: rng}
}

func (n *Statement) Range() lexer.Range { return n.rng }
func (*Statement) node() {}

// VarDecl is `var name [= init];` or, when Const, `val name [= init];`.
type VarDecl struct {
	Name  string
	Init  Node // nil when absent
	Const bool
	rng   lexer.Range
}

// NewVarDecl constructs a variable declaration node.
func NewVarDecl(name string, init Node, isConst bool, rng lexer.Range) *VarDecl {
	return &VarDecl{Name: name, Init: init, Const: isConst, rng: rng}
}

func (n *VarDecl) Range() lexer.Range { return n.rng }
func (*VarDecl) node() {}

// FuncDecl is `func name(params) { body }`.
type FuncDecl struct {
	Name   string
	Params []string
	Body   []Node
	rng    lexer.Range
}

// NewFuncDecl constructs a function declaration node.
func NewFuncDecl(name string, params []string, body []Node, rng lexer.Range) *FuncDecl {
	return &FuncDecl{Name: name, Params: params, Body: body, rng: rng}
}

func (n *FuncDecl) Range() lexer.Range { return n.rng }
func (*FuncDecl) node() {}

// FuncCall is `name(args)`.
type FuncCall struct {
	Name string
	Args []Node
	rng  lexer.Range
}

// NewFuncCall constructs a function call node.
func NewFuncCall(name string, args []Node, rng lexer.Range) *FuncCall {
	return &FuncCall{Name: name, Args: args, rng: rng}
}

func (n *FuncCall) Range() lexer.Range { return n.rng }
func (*FuncCall) node() {}

// Accessor is one `.name` or `.name(args)` link of a member access chain.
type Accessor struct {
	Name   string
	Args   []Node
	Invoke bool // true when written with parentheses, even if Args is empty
	rng    lexer.Range
}

// NewAccessor constructs a member access link.
func NewAccessor(name string, args []Node, invoke bool, rng lexer.Range) *Accessor {
	return &Accessor{Name: name, Args: args, Invoke: invoke, rng: rng}
}

func (n *Accessor) Range() lexer.Range { return n.rng }
func (*Accessor) node() {}

// MemberAccess is `base.link.link(...)`.
type MemberAccess struct {
	Base  string
	Chain []*Accessor
	rng   lexer.Range
}

// NewMemberAccess constructs a member access node.
func NewMemberAccess(base string, chain []*Accessor, rng lexer.Range) *MemberAccess {
	return &MemberAccess{Base: base, Chain: chain, rng: rng}
}

func (n *MemberAccess) Range() lexer.Range { return n.rng }
func (*MemberAccess) node() {}

// CondBranch pairs an if/elif condition with its body.
type CondBranch struct {
	Cond Node
	Body *Block
}

// IfStmt is `if c { } elif c { } else { }`.
type IfStmt struct {
	Branches []CondBranch
	Else     *Block // nil when absent
	rng      lexer.Range
}

// NewIfStmt constructs an if statement node.
func NewIfStmt(branches []CondBranch, elseBody *Block, rng lexer.Range) *IfStmt {
	return &IfStmt{Branches: branches, Else: elseBody, rng: rng}
}

func (n *IfStmt) Range() lexer.Range { return n.rng }
func (*IfStmt) node() {}

// RepeatLoop is `repeat count [as index] { }`.
type RepeatLoop struct {
	Count Node
	Index string // empty when there is no binding
	Body  *Block
	rng   lexer.Range
}

// NewRepeatLoop constructs a repeat loop node.
func NewRepeatLoop(count Node, index string, body *Block, rng lexer.Range) *RepeatLoop {
	return &RepeatLoop{Count: count, Index: index, Body: body, rng: rng}
}

func (n *RepeatLoop) Range() lexer.Range { return n.rng }
func (*RepeatLoop) node() {}

// WhileLoop is `while cond { }`.
type WhileLoop struct {
	Cond Node
	Body *Block
	rng  lexer.Range
}

// NewWhileLoop constructs a while loop node.
func NewWhileLoop(cond Node, body *Block, rng lexer.Range) *WhileLoop {
	return &WhileLoop{Cond: cond, Body: body, rng: rng}
}

func (n *WhileLoop) Range() lexer.Range { return n.rng }
func (*WhileLoop) node() {}

// DoWhileLoop is `do { } while cond;`.
type DoWhileLoop struct {
	Body *Block
	Cond Node
	rng  lexer.Range
}

// NewDoWhileLoop constructs a do-while loop node.
func NewDoWhileLoop(body *Block, cond Node, rng lexer.Range) *DoWhileLoop {
	return &DoWhileLoop{Body: body, Cond: cond, rng: rng}
}

func (n *DoWhileLoop) Range() lexer.Range { return n.rng }
func (*DoWhileLoop) node() {}

// ForLoop is `for v in iterable { }` or `for k, v in iterable { }`.
type ForLoop struct {
	Key      string // empty for the single-binding form
	Value    string
	Iterable Node
	Body     *Block
	rng      lexer.Range
}

// NewForLoop constructs a for loop node.
func NewForLoop(key, value string, iterable Node, body *Block, rng lexer.Range) *ForLoop {
	return &ForLoop{Key: key, Value: value, Iterable: iterable, Body: body, rng: rng}
}

func (n *ForLoop) Range() lexer.Range { return n.rng }
func (*ForLoop) node() {}

// Block is `{ nodes }`.
type Block struct {
	Nodes []Node
	rng   lexer.Range
}

// NewBlock constructs a block node.
func NewBlock(nodes []Node, rng lexer.Range) *Block {
	return &Block{Nodes: nodes, rng: rng}
}

func (n *Block) Range() lexer.Range { return n.rng }
func (*Block) node() {}

// NamedBlock is `name { }`; the name selects the evaluation semantics.
type NamedBlock struct {
	Name string
	Body *Block
	rng  lexer.Range
}

// NewNamedBlock constructs a named block node.
func NewNamedBlock(name string, body *Block, rng lexer.Range) *NamedBlock {
	return &NamedBlock{Name: name, Body: body, rng: rng}
}

func (n *NamedBlock) Range() lexer.Range { return n.rng }
func (*NamedBlock) node() {}

// Case is `[comparator] (operand)`.
type Case struct {
	Comparator string // empty when the default comparator applies
	Operand    *ParenExpr
	rng        lexer.Range
}

// NewCase constructs a case condition node.
func NewCase(comparator string, operand *ParenExpr, rng lexer.Range) *Case {
	return &Case{Comparator: comparator, Operand: operand, rng: rng}
}

func (n *Case) Range() lexer.Range { return n.rng }
func (*Case) node() {}

// CaseAndGroup holds cases joined by `&&`.
type CaseAndGroup struct {
	Cases []*Case
	rng   lexer.Range
}

// NewCaseAndGroup constructs an AND group node.
func NewCaseAndGroup(cases []*Case, rng lexer.Range) *CaseAndGroup {
	return &CaseAndGroup{Cases: cases, rng: rng}
}

func (n *CaseAndGroup) Range() lexer.Range { return n.rng }
func (*CaseAndGroup) node() {}

// CaseOrGroup holds AND groups joined by `||`.
type CaseOrGroup struct {
	Groups []*CaseAndGroup
	rng    lexer.Range
}

// NewCaseOrGroup constructs an OR group node.
func NewCaseOrGroup(groups []*CaseAndGroup, rng lexer.Range) *CaseOrGroup {
	return &CaseOrGroup{Groups: groups, rng: rng}
}

func (n *CaseOrGroup) Range() lexer.Range { return n.rng }
func (*CaseOrGroup) node() {}

// FullCase is `case condition { body }`.
type FullCase struct {
	Cond *CaseOrGroup
	Body *Block
	rng  lexer.Range
}

// NewFullCase constructs a when-case node.
func NewFullCase(cond *CaseOrGroup, body *Block, rng lexer.Range) *FullCase {
	return &FullCase{Cond: cond, Body: body, rng: rng}
}

func (n *FullCase) Range() lexer.Range { return n.rng }
func (*FullCase) node() {}

// WhenExpr is `when (operand) [comparator] { case ... default { } }`.
type WhenExpr struct {
	Operand    *ParenExpr
	Comparator string // default comparator, may be empty
	Cases      []*FullCase
	Default    *Block // nil when absent
	rng        lexer.Range
}

// NewWhenExpr constructs a when expression node.
func NewWhenExpr(operand *ParenExpr, comparator string, cases []*FullCase, def *Block, rng lexer.Range) *WhenExpr {
	return &WhenExpr{Operand: operand, Comparator: comparator, Cases: cases, Default: def, rng: rng}
}

func (n *WhenExpr) Range() lexer.Range { return n.rng }
func (*WhenExpr) node() {}
