/*
Package healthcheck serves the admin API. /live and /ready aggregate the checks registered
with the system, and /debug/pprof exposes the Go runtime profiles.
*/
package healthcheck
