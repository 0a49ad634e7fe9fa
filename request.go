package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errMalformedRequestLine = errors.New("malformed request line")

type request struct {
	Method  string
	Path    string
	Version string
}

// readRequest reads the request line only. The line ends at "\n", "\r" or
// "\r\n"; a "\n" after "\r" is consumed only when it has already arrived.
// Header lines and any body are left unread on the connection.
func readRequest(r *bufio.Reader) (*request, error) {
	var line []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) || len(line) == 0 {
				return nil, fmt.Errorf("read request line: %w", err)
			}
			break
		}
		if b == '\n' {
			break
		}
		if b == '\r' {
			if r.Buffered() > 0 {
				if next, _ := r.Peek(1); next[0] == '\n' {
					_, _ = r.ReadByte()
				}
			}
			break
		}
		line = append(line, b)
	}
	return parseRequestLine(string(line))
}

func parseRequestLine(line string) (*request, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	parts := strings.Split(line, " ")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %d tokens", errMalformedRequestLine, len(parts))
	}

	return &request{
		Method:  parts[0],
		Path:    parts[1],
		Version: parts[2],
	}, nil
}
