// Package domain holds the core entities shared across services: campaigns,
// participants, the delivery ledger, and audit entries. It has no
// dependencies on other internal packages.
package domain
