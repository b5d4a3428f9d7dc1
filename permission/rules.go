// Package permission decides which tools an agent may see and call.
//
// Tool names are matched against glob patterns (doublestar syntax, so
// "team_*" or "mcp__{search,fetch}__*" both work). A Policy narrows the tool
// set with an allow-list and then removes entries with a deny-list.
package permission

import "github.com/bmatcuk/doublestar/v4"

// Decision is the outcome of evaluating a tool name.
type Decision int

const (
	Allow Decision = iota
	Deny
)

func (d Decision) String() string {
	if d == Deny {
		return "deny"
	}
	return "allow"
}

// Match reports whether name matches the glob pattern. Malformed patterns
// only match by exact equality.
func Match(pattern, name string) bool {
	if pattern == name {
		return true
	}
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
