// Package mockclickhouserow mocks the single-row result returned by QueryRow.
package mockclickhouserow

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

type Row struct {
	mock.Mock
}

var _ driver.Row = &Row{}

func (m *Row) Err() error {
	return m.Called().Error(0)
}

func (m *Row) Scan(dest ...any) error {
	callArgs := []any{}
	callArgs = append(callArgs, dest...)
	return m.Called(callArgs...).Error(0)
}

func (m *Row) ScanStruct(dest any) error {
	return m.Called(dest).Error(0)
}
