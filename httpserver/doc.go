/*
Package httpserver runs HTTP servers that drain in-flight requests on shutdown and report
connection gauges.

The ginrouter subpackage builds the instrumented router the API runs on, and healthcheck
serves the admin API.
*/
package httpserver
