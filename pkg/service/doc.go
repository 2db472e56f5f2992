// Package service provides the in-process service container that owns the
// lifecycle of provisioned services.
//
// Services are registered under a hierarchical Name together with the names
// of the services they depend on. The Container refuses duplicate names and
// dependencies that are not registered, starts ACTIVE services as soon as all
// of their dependencies are UP, and stops everything in reverse dependency
// order on shutdown.
package service
