package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyspace(t *testing.T) {
	tests := []struct {
		args []any
		want string
	}{
		{[]any{"set", "lock:rental:r-1", "token", "nx"}, "lock"},
		{[]any{"get", "cache:payment:r-1"}, "cache"},
		{[]any{"get", "idempotency:user-1:POST:/v1/rentals:k"}, "idempotency"},
		{[]any{"evalsha", "abc123", int64(1), "lock:unit:u-1", "token"}, "lock"},
		{[]any{"evalsha", "abc123"}, "redis"},
		{[]any{"ping"}, "redis"},
		{[]any{"get", "plainkey"}, "redis"},
		{[]any{"del", 42}, "redis"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, keyspace(tt.args), "args %v", tt.args)
	}
}
