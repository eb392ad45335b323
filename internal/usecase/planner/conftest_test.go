package planner

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

// mockTranslator implements Translator for tests.
type mockTranslator struct {
	translateFn func(ctx context.Context, query string) (string, error)
}

func (m *mockTranslator) Translate(ctx context.Context, query string) (string, error) {
	if m.translateFn != nil {
		return m.translateFn(ctx, query)
	}
	return "[]", nil
}

func newTestService(t *testing.T, out string, err error) *Service {
	t.Helper()
	return New(&mockTranslator{translateFn: func(context.Context, string) (string, error) {
		return out, err
	}}, zap.NewNop())
}
