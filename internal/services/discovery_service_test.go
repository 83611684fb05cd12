package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocol(t *testing.T) {
	testCases := []struct {
		name           string
		host           string
		forwardedProto string
		expected       string
	}{
		{name: "public host", host: "example.com", expected: "https"},
		{name: "localhost", host: "localhost:8080", expected: "http"},
		{name: "loopback", host: "127.0.0.1:9000", expected: "http"},
		{name: "dev port", host: "doxyde.test:8000", expected: "http"},
		{name: "forwarded http", host: "example.com", forwardedProto: "http", expected: "http"},
		{name: "forwarded https on localhost", host: "localhost", forwardedProto: "https", expected: "https"},
		{name: "forwarded list", host: "example.com", forwardedProto: " HTTP , https", expected: "http"},
		{name: "unknown scheme on public host", host: "example.com", forwardedProto: "foo", expected: "https"},
		{name: "unknown scheme on localhost", host: "localhost", forwardedProto: "javascript", expected: "http"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Protocol(tt.host, tt.forwardedProto))
		})
	}
}
