// Package database provides SQLite access for the iqstream session
// ledger.
//
// SQLite fits the workload: a single embedded writer recording capture
// sessions and control events, queried occasionally by an operator.
// WAL mode keeps reads from blocking the (rare) writes.
//
// Schema changes ship as embedded .up.sql files applied on startup;
// see the migrations package at the repository root.
package database
