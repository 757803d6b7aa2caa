// Package core contains the canonical cloudops domain contracts, entities,
// and orchestration logic: the dual-projection credential model, the payload
// codec, and the account credential service. Lower-level adapters must depend
// on this package; core must not depend on storage or transport adapters.
package core
