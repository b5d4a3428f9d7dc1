package permission

// Policy is one layer of tool restrictions. An empty Allow list allows
// everything.
type Policy struct {
	Allow []string
	Deny  []string
}

// Empty reports whether p places no restriction.
func (p Policy) Empty() bool {
	return len(p.Allow) == 0 && len(p.Deny) == 0
}

func (p Policy) allowed(name string) bool {
	if len(p.Allow) == 0 {
		return true
	}
	return matchAny(p.Allow, name)
}

func (p Policy) denied(name string) bool {
	return matchAny(p.Deny, name)
}

// Chain stacks policies. A tool survives when every layer's allow-list
// admits it and no layer's deny-list matches it, so allow-lists narrow
// and deny-lists exclude.
type Chain []Policy

// Check returns the decision for name.
func (c Chain) Check(name string) Decision {
	for _, p := range c {
		if !p.allowed(name) {
			return Deny
		}
	}
	for _, p := range c {
		if p.denied(name) {
			return Deny
		}
	}
	return Allow
}

// Filter returns the names allowed by the chain, preserving order.
func (c Chain) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if c.Check(n) == Allow {
			out = append(out, n)
		}
	}
	return out
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if Match(p, name) {
			return true
		}
	}
	return false
}
