/*
Package domain contains the core domain models for the dashgrid layout engine.

It defines the fundamental placement entities (Items, Sections and the
canonical Layout snapshot) plus the wire triples exchanged with persistence
gateways and the sentinel errors shared across packages. This package is kept
pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - Item: a placeable shortcut with a container reference and a position.
  - Section: a named, ordered group; the implicit unsectioned bucket is the
    empty container ID.
  - Layout: the server-confirmed snapshot of every item and section.
  - ItemPlacement / SectionPlacement: reposition triples sent to gateways.
*/
package domain
