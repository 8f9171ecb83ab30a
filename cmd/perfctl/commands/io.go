package commands

import (
	"errors"
	"io"
)

func readAll(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, errors.New("no stdin available")
	}
	return io.ReadAll(r)
}
