package planner

import "context"

// Translator turns a natural-language query into raw plan output (wire JSON, possibly wrapped).
type Translator interface {
	Translate(ctx context.Context, query string) (string, error)
}
