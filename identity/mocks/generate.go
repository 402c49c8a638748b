// Package mocks provides gomock implementations of the identity ports.
//
// To regenerate after interface changes, run:
//
//	go generate ./identity/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=provider_mock.go github.com/jrsteele09/takemethere/identity Provider
