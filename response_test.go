package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHead(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		contentType   string
		contentLength int64
		expected      string
	}{
		{
			name:          "OK",
			status:        statusOK,
			contentType:   "text/css; charset=utf-8",
			contentLength: 42,
			expected: "HTTP/1.1 200 OK\r\n" +
				"Content-Type: text/css; charset=utf-8\r\n" +
				"Content-Length: 42\r\n" +
				"Connection: close\r\n\r\n",
		},
		{
			name:   "Not Found Falls Back To Octet Stream",
			status: statusNotFound,
			expected: "HTTP/1.1 404 Not Found\r\n" +
				"Content-Type: application/octet-stream\r\n" +
				"Content-Length: 0\r\n" +
				"Connection: close\r\n\r\n",
		},
		{
			name:   "Internal Server Error",
			status: statusInternalServerError,
			expected: "HTTP/1.1 500 Internal Server Error\r\n" +
				"Content-Type: application/octet-stream\r\n" +
				"Content-Length: 0\r\n" +
				"Connection: close\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeHead(&buf, tt.status, tt.contentType, tt.contentLength))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}
