package main

import (
	"fmt"
	"io"
)

const (
	statusOK                  = 200
	statusNotFound            = 404
	statusInternalServerError = 500

	defaultContentType = "application/octet-stream"
)

var statusText = map[int]string{
	statusOK:                  "OK",
	statusNotFound:            "Not Found",
	statusInternalServerError: "Internal Server Error",
}

// writeHead writes the status line and the fixed header block. An empty
// contentType is sent as application/octet-stream.
func writeHead(w io.Writer, status int, contentType string, contentLength int64) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := fmt.Fprintf(w,
		"HTTP/1.1 %d %s\r\n"+
			"Content-Type: %s\r\n"+
			"Content-Length: %d\r\n"+
			"Connection: close\r\n"+
			"\r\n",
		status, statusText[status], contentType, contentLength,
	)
	return err
}
