// Package repositories implements the durable record store over PostgreSQL.
// Every operation is an atomic per-row statement; the engine never relies on
// multi-row transactions across tables.
package repositories

import "strconv"

func itoa(n int) string { return strconv.Itoa(n) }
