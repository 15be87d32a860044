/*
Package ports defines the driven ports (interfaces) for the dashgrid layout
engine.

These interfaces decouple the reconciliation core from external
implementations, allowing the engine to work with various storage backends.

# Key Interfaces

  - Gateway: persists item/section placements and serves the canonical layout.
  - Seeder: primes a gateway with an initial layout.
  - Watcher: surfaces out-of-band mutations of a gateway's backing store.
*/
package ports
