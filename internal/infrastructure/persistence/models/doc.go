// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts to and from its
// domain type with ToDomain and a FromDomain constructor.
//
//   - base.go: shared id/timestamp/version columns
//   - membership.go: users and units (read side)
//   - fee.go: fee rules, unit assignments, fee applications
//   - payment.go: payments
package models
