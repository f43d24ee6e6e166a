/*
Package worker runs a background loop with observability and back-off when there is no
work to do.

The system package uses it to publish gauges.
*/
package worker
