package service

import (
	"lead-automation-service/internal/testdata/mockservice"
)

// Compile-time checks that the mocks in testdata implement the service
// interfaces. They live here instead of the mock package to avoid an
// import cycle in tests.
var (
	_ EventService  = &mockservice.Service{}
	_ EvalPool      = &mockservice.EvalPool{}
	_ ActionApplier = &mockservice.ActionApplier{}
)
