// Package mockclickhouseconnection mocks the analytics store connection.
package mockclickhouseconnection

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

type Connection struct {
	mock.Mock
}

var _ clickhouse.Conn = &Connection{}

func (m *Connection) Exec(ctx context.Context, query string, args ...any) error {
	callArgs := []any{ctx, query}
	callArgs = append(callArgs, args...)
	return m.Called(callArgs...).Error(0)
}

func (m *Connection) PrepareBatch(ctx context.Context, query string) (driver.Batch, error) {
	mockArgs := m.Called(ctx, query)
	if v := mockArgs.Get(0); v != nil {
		if batch, ok := v.(driver.Batch); ok {
			return batch, mockArgs.Error(1)
		}
	}
	return nil, mockArgs.Error(1)
}

func (m *Connection) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	callArgs := []any{ctx, query}
	callArgs = append(callArgs, args...)
	mockArgs := m.Called(callArgs...)
	if v := mockArgs.Get(0); v != nil {
		return v.(driver.Rows), mockArgs.Error(1)
	}
	return nil, mockArgs.Error(1)
}

func (m *Connection) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	callArgs := []any{ctx, query}
	callArgs = append(callArgs, args...)
	return m.Called(callArgs...).Get(0).(driver.Row)
}

func (m *Connection) Select(ctx context.Context, dest any, query string, args ...any) error {
	mockArgs := m.Called(ctx, dest, query, args)
	return mockArgs.Error(0)
}

func (m *Connection) AsyncInsert(ctx context.Context, query string, wait bool) error {
	return m.Called(ctx, query, wait).Error(0)
}

func (m *Connection) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Connection) Close() error {
	return m.Called().Error(0)
}

func (m *Connection) Contributors() []string {
	return m.Called().Get(0).([]string)
}

func (m *Connection) ServerVersion() (*driver.ServerVersion, error) {
	mockArgs := m.Called()
	return mockArgs.Get(0).(*clickhouse.ServerVersion), mockArgs.Error(1)
}

func (m *Connection) Stats() driver.Stats {
	return m.Called().Get(0).(driver.Stats)
}
