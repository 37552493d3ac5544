package mocktextgen

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lead-automation-service/internal/textgen"
)

type Generator struct {
	mock.Mock
}

var _ textgen.Generator = &Generator{}

func (m *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
