// Package services implements the driving port interfaces.
// Services contain the core business logic - ledger reconciliation, the
// sync state machine, index writing, namespace routing and retrieval -
// and orchestrate calls to driven ports (adapters).
//
// Services are pure Go with no external dependencies beyond the ports.
package services
