// Package models holds the GORM models behind the settlement repositories.
// Domain types stay free of ORM tags; each model converts to and from its
// domain type.
//
//   - base.go: tenant aggregate columns shared by versioned rows
//   - settlement.go: invoices, payments, bank accounts, rates, journal
//   - outbox.go: transactional outbox rows
package models
