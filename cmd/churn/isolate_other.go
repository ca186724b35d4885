//go:build !unix

package main

import "errors"

func isolate(string) error {
	return errors.New("isolation is not supported on this platform")
}
