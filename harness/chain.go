package harness

// Chain composes rules so rule 0 is outermost: its setup runs first and
// its teardown runs last. Because composition is pure nesting, the unwind
// guarantee is structural: if rule i's setup fails, the statements of
// rules 0..i-1 are already on the stack and their teardowns still run,
// while rules i+1.. and the body are never entered.
type Chain struct {
	rules []Rule
}

// NewChain creates a chain of rules, outermost first.
func NewChain(rules ...Rule) *Chain {
	return &Chain{rules: rules}
}

// Outer returns a new chain with r wrapped outside the existing rules.
func (c *Chain) Outer(r Rule) *Chain {
	return &Chain{rules: append([]Rule{r}, c.rules...)}
}

// Inner returns a new chain with r nested inside the existing rules.
func (c *Chain) Inner(r Rule) *Chain {
	rules := make([]Rule, 0, len(c.rules)+1)
	rules = append(rules, c.rules...)
	return &Chain{rules: append(rules, r)}
}

// Around wraps base in every rule of the chain.
func (c *Chain) Around(base Statement, d Description) Statement {
	stmt := base
	for i := len(c.rules) - 1; i >= 0; i-- {
		stmt = c.rules[i].Apply(stmt, d)
	}
	return stmt
}

// Apply implements Rule, so chains nest inside other chains.
func (c *Chain) Apply(next Statement, d Description) Statement {
	return c.Around(next, d)
}
