package mocks

//go:generate mockgen -source=../delivery/gateway.go -destination=./delivery_gateway_mock.go -package=mocks

// This package only depends on leaf packages (common, delivery, events and the
// Telegram API types) so that any package's tests can import it. Doubles for
// interfaces declared in higher packages live next to those interfaces.
