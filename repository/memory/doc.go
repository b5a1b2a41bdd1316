// Package memory provides map-backed test doubles for the repository
// interfaces. They keep the Postgres stores' rules (primary and audit rows,
// version checks, unique email addresses) so use case and handler tests run
// without a database. The server never wires them.
package memory
