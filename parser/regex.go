package parser

// Shared regex fragments for the line-shaped recognizers. Go's RE2 engine
// doesn't support extended/verbose mode, so the multi-line, commented
// patterns in the upstream recognizers are collapsed into single-line
// equivalents here.
const (
	timestampPattern = `\d{4}-[01]\d-[0-3]\dT[0-2]\d:[0-5]\d:[0-5]\d\.\d+([+-][0-2]\d:[0-5]\d|Z)`
	uuidPattern      = `[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`
)

// namedGroup returns the named submatch value from a regexp match, or ""
// if the group didn't participate in the match.
func namedGroup(re interface{ SubexpNames() []string }, match []string, name string) string {
	for i, n := range re.SubexpNames() {
		if n == name {
			return match[i]
		}
	}
	return ""
}
