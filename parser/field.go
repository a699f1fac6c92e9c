package parser

import "strings"

// Field is the outcome of one extraction rule: a value, or nothing found.
// Rules return Fields instead of errors so fallback chains stay plain
// function composition.
type Field struct {
	Value string
	Found bool
}

func found(v string) Field {
	return Field{Value: v, Found: true}
}

// Or returns f when it holds a value, otherwise the result of next.
func (f Field) Or(next func() Field) Field {
	if f.Found {
		return f
	}
	return next()
}

// Map transforms a found value. Empty results count as not found.
func (f Field) Map(fn func(string) string) Field {
	if !f.Found {
		return f
	}
	v := fn(f.Value)
	if strings.TrimSpace(v) == "" {
		return Field{}
	}
	return found(v)
}

// Filter keeps a found value only when ok accepts it.
func (f Field) Filter(ok func(string) bool) Field {
	if !f.Found || ok(f.Value) {
		return f
	}
	return Field{}
}

// Else returns the value or sentinel when nothing was found.
func (f Field) Else(sentinel string) string {
	if f.Found {
		return f.Value
	}
	return sentinel
}
