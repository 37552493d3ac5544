package analytics

import (
	"lead-automation-service/internal/testdata/mockanalytics"
)

// Compile-time checks that the mocks in testdata implement the analytics
// interfaces. They live here instead of the mock package to avoid an
// import cycle in tests.
var (
	_ Repository = &mockanalytics.Repository{}
	_ Sink       = &mockanalytics.Sink{}
)
