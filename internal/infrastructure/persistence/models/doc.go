// Package models holds the GORM persistence models backing the payment and
// fiscal repositories. Domain entities stay free of ORM tags; the repository
// mappers translate between the two representations.
//
// payment.go covers invoices, gateway transactions and paid marks.
// fiscal.go covers issued tax receipts.
package models
