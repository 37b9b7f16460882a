package solver

// Result is the three-valued verdict of a satisfiability check.
type Result int

const (
	Unknown Result = iota
	Unsat
	Sat
)

var resultTokens = map[Result]string{
	Unknown: "unknown",
	Unsat:   "unsat",
	Sat:     "sat",
}

func (result Result) String() string {
	return resultTokens[result]
}

// ParseResult maps a solver's verdict token to a Result.
func ParseResult(token string) (Result, bool) {
	for result, resultToken := range resultTokens {
		if resultToken == token {
			return result, true
		}
	}
	return Unknown, false
}
