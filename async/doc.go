/*
Package async turns completion callbacks into values that can be passed around and waited on.

A Promise is the producer side of a one-shot result, its Future is the consumer side.
A Promise can be completed once; later attempts return ErrAlreadyCompleted and leave the
first outcome in place.

A Stream is a finite sequence fed by a producer that never blocks. Elements are buffered
without bound until the consumer reads them, then the stream ends with either a completion
or a failure signal.
*/
package async
