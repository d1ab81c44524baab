// Package postgres implements the domain repositories on PostgreSQL through a
// pgx connection pool.
//
// Loan transitions lock the book row with SELECT ... FOR UPDATE inside a
// transaction and guard the write with the version read, so transitions on
// different books run in parallel while transitions on the same book queue
// behind the row lock.
package postgres
