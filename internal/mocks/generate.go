// Package mocks provides mock implementations for testing the listing pipeline.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository
// and outbound port interfaces. The generate directives live next to the interfaces in
// internal/core and internal/ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/core ./internal/ports
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	t.Cleanup(ctrl.Finish)
//	accounts := mocks.NewMockAccountRepository(ctrl)
//	accounts.EXPECT().FindByProfile(gomock.Any(), "p-1").Return(account, nil)
package mocks
