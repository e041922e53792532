package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLinkURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://example.com/a"},
		{name: "http", url: "http://example.com"},
		{name: "relative path", url: "/about"},
		{name: "fragment", url: "#contact"},
		{name: "mailto", url: "mailto:hi@example.com"},
		{name: "tel", url: "tel:+123"},
		{name: "empty", url: ""},
		{name: "javascript", url: "javascript:alert(1)", wantErr: true},
		{name: "javascript mixed case", url: "JaVaScRiPt:alert(1)", wantErr: true},
		{name: "javascript leading space", url: "  javascript:alert(1)", wantErr: true},
		{name: "vbscript", url: "vbscript:msgbox", wantErr: true},
		{name: "data", url: "data:text/html,<b>x</b>", wantErr: true},
		{name: "file", url: "file:///etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLinkURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafeURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://placehold.co/200x200"},
		{name: "relative", url: "img/cat.png"},
		{name: "inline png", url: "data:image/png;base64,AAAA"},
		{name: "inline html", url: "data:text/html;base64,AAAA", wantErr: true},
		{name: "javascript", url: "javascript:alert(1)", wantErr: true},
		{name: "mailto", url: "mailto:hi@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafeURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
