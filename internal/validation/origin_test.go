package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHost(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{"localhost", false},
		{"0.0.0.0", false},
		{"lab.example.com", false},
		{"[::1]", false},
		{"localhost;rm -rf /", true},
		{"host name", true},
		{"$(whoami)", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseOrigin(t *testing.T) {
	tests := []struct {
		origin  string
		wantErr bool
	}{
		{"http://localhost:8080", false},
		{"https://lab.example", false},
		{"https://lab.example/", false},
		{"", true},
		{"*", true},
		{"https://*.example.com", true},
		{"http://*:8080", true},
		{"http://lab*.example", true},
		{"ftp://lab.example", true},
		{"javascript:alert(1)", true},
		{"http://", true},
		{"http://lab.example/path", true},
		{"http://user@lab.example", true},
		{"http://lab.example?x=1", true},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			_, err := ParseOrigin(tt.origin)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"localhost:8080", "https://lab.example/"}

	tests := []struct {
		origin  string
		wantErr bool
	}{
		{"http://localhost:8080", false},
		{"https://localhost:8080", false},
		{"https://lab.example", false},
		{"HTTPS://LAB.EXAMPLE", false},
		{"http://lab.example", true},
		{"http://localhost:3000", true},
		{"http://evil.test", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			err := ValidateOrigin(tt.origin, allowed)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
