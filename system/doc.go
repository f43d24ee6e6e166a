/*
Package system manages the startup, running, metrics and shutdown of the service.

Components register their long running services, health checks, gauges and cleanups
with a System. Run starts them all and returns when the first one fails or the process is
told to stop. The caller then runs Cleanup.
*/
package system
