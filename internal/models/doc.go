// Package models defines the records the settlement ledger reads and writes.
//
// Receipts, line items, claims and group membership are produced by the
// receipt pipeline and treated as validated input. Debts are the ledger's
// own output: derived per receipt, then retired and replaced when a group's
// debts are simplified.
//
// All monetary fields are int64 minor units of the record's Currency; see
// package money for how a currency's precision is looked up.
//
// Relationships are expressed with ID strings rather than pointers so the
// records map one-to-one onto storage rows.
package models
