// Package closer closes resources from a defer without losing the close error.
package closer

import "io"

// Close closes c and stores its error in *err, unless *err already holds an earlier
// failure.
func Close(c io.Closer, err *error) {
	cerr := c.Close()
	if *err == nil {
		*err = cerr
	}
}
