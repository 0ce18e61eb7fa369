package domain

import "strings"

// Function abstracts a function as its argument and return values.
type Function struct {
	Arguments []Value
	Return    Value
}

func (f Function) String() string {
	args := make([]string, len(f.Arguments))
	for i, a := range f.Arguments {
		args[i] = a.String()
	}
	return "fn(" + strings.Join(args, ", ") + ") -> " + f.Return.String()
}
