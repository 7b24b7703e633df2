package plan

// Node is the interface every logical-plan node implements, kept to
// the three methods the walker and engine builder actually need.
type Node interface {
	Children() []Node
	SetChildren(children ...Node)
	Explain() string
}

// baseNode centralises the single-child bookkeeping most node kinds
// share.
type baseNode struct {
	input Node
}

func (b *baseNode) Children() []Node {
	if b.input == nil {
		return nil
	}
	return []Node{b.input}
}

func (b *baseNode) SetChildren(children ...Node) {
	if len(children) > 0 {
		b.input = children[0]
	}
}

// TableScan reads every row of a table.
type TableScan struct {
	TableName string
}

func (t *TableScan) Children() []Node            { return nil }
func (t *TableScan) SetChildren(children ...Node) {}
func (t *TableScan) Explain() string              { return "TableScan(" + t.TableName + ")" }

// Filter applies Predicate to its input's rows.
type Filter struct {
	baseNode
	Predicate *Expr
}

func NewFilter(input Node, predicate *Expr) *Filter {
	f := &Filter{Predicate: predicate}
	f.input = input
	return f
}

func (f *Filter) Explain() string { return "Filter" }

// ProjAlias pairs an output column name with the expression that
// produces it.
type ProjAlias struct {
	Alias string
	Expr  *Expr
}

// Projection evaluates Aliases over its input (or, for INSERT/UPDATE
// plans, wraps a Values node / a bare literal list with no input).
type Projection struct {
	baseNode
	Aliases []ProjAlias
}

func NewProjection(input Node, aliases []ProjAlias) *Projection {
	p := &Projection{Aliases: aliases}
	p.input = input
	return p
}

func (p *Projection) Explain() string { return "Projection" }

// Sort orders its input's rows.
type Sort struct {
	baseNode
	Items []OrderByItem
}

// OrderByItem names a sort column and direction.
type OrderByItem struct {
	Column    string
	Direction string // "ASC" or "DESC"
}

func NewSort(input Node, items []OrderByItem) *Sort {
	s := &Sort{Items: items}
	s.input = input
	return s
}

func (s *Sort) Explain() string { return "Sort" }

// Limit bounds its input to at most N rows after Offset.
type Limit struct {
	baseNode
	Limit  int64
	Offset int64
}

func NewLimit(input Node, limit, offset int64) *Limit {
	l := &Limit{Limit: limit, Offset: offset}
	l.input = input
	return l
}

func (l *Limit) Explain() string { return "Limit" }

// AggregationItem is one aggregate computed over the input.
type AggregationItem struct {
	Function string
	Column   string
	Alias    string
}

// Aggregate groups its input by GroupBy and computes Items.
type Aggregate struct {
	baseNode
	GroupBy []string
	Items   []AggregationItem
}

func NewAggregate(input Node, groupBy []string, items []AggregationItem) *Aggregate {
	a := &Aggregate{GroupBy: groupBy, Items: items}
	a.input = input
	return a
}

func (a *Aggregate) Explain() string { return "Aggregate" }

// Distinct removes duplicate rows from its input.
type Distinct struct {
	baseNode
}

func NewDistinct(input Node) *Distinct {
	d := &Distinct{}
	d.input = input
	return d
}

func (d *Distinct) Explain() string { return "Distinct" }

// Union concatenates rows from two inputs.
type Union struct {
	Left, Right Node
}

func (u *Union) Children() []Node {
	return []Node{u.Left, u.Right}
}

func (u *Union) SetChildren(children ...Node) {
	if len(children) > 0 {
		u.Left = children[0]
	}
	if len(children) > 1 {
		u.Right = children[1]
	}
}

func (u *Union) Explain() string { return "Union" }

// SubqueryAlias names the result of its input as a correlation name.
type SubqueryAlias struct {
	baseNode
	Alias string
}

func NewSubqueryAlias(input Node, alias string) *SubqueryAlias {
	s := &SubqueryAlias{Alias: alias}
	s.input = input
	return s
}

func (s *SubqueryAlias) Explain() string { return "SubqueryAlias(" + s.Alias + ")" }

// Join combines Left and Right rows matching On.
type Join struct {
	Left, Right Node
	JoinType    string
	On          *Expr
}

func (j *Join) Children() []Node {
	return []Node{j.Left, j.Right}
}

func (j *Join) SetChildren(children ...Node) {
	if len(children) > 0 {
		j.Left = children[0]
	}
	if len(children) > 1 {
		j.Right = children[1]
	}
}

func (j *Join) Explain() string { return "Join(" + j.JoinType + ")" }

// Values is a literal row source: one row per entry, each row a list
// of literal expressions in column order.
type Values struct {
	Rows [][]Expr
}

func (v *Values) Children() []Node            { return nil }
func (v *Values) SetChildren(children ...Node) {}
func (v *Values) Explain() string              { return "Values" }

// DmlKind distinguishes the write operation a Dml node represents.
type DmlKind string

const (
	DmlInsert DmlKind = "INSERT"
	DmlUpdate DmlKind = "UPDATE"
	DmlDelete DmlKind = "DELETE"
)

// Dml is the plan root for a write. For INSERT, Input is the canonical
// Projection(Values) (or Projection(TableScan/...) for INSERT FROM
// SELECT). For UPDATE, Input is a Projection whose aliases wrap the SET
// literals, wrapping a Filter/TableScan for the WHERE. For DELETE,
// Input is whatever carries the WHERE (a Filter over a TableScan, or a
// bare TableScan when there is no WHERE).
type Dml struct {
	baseNode
	Kind      DmlKind
	TableName string
}

func NewDml(kind DmlKind, tableName string, input Node) *Dml {
	d := &Dml{Kind: kind, TableName: tableName}
	d.input = input
	return d
}

func (d *Dml) Explain() string { return string(d.Kind) + "(" + d.TableName + ")" }
