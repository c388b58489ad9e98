// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// Services receive dependencies through constructor injection and depend on
// domain entities and store interfaces, never on specific infrastructure
// implementations. Expected failures surface as sentinel errors that the
// API layer maps to HTTP status codes; unexpected failures are wrapped in
// service-specific error types carrying the failed operation.
package service
