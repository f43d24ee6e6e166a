/*
Package db contains the pooled database access used by the gateway.

There are tools for:
- opening a pgx pool or a database/sql pool from one Config
- executing statements on a pool with a completion callback (Executor)
- decoding materialized rows by column position
- mapping Postgres errors from either driver to the sentinel errors here
- observability (query spans and pool gauges) and health checks
*/
package db
