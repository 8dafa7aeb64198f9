package httputil

import (
	"net/http"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "ipv4 with port", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "ipv6 with port", remoteAddr: "[::1]:12345", want: "::1"},
		{name: "bare address", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
		{name: "mapped ipv4 is unmapped", remoteAddr: "[::ffff:10.1.2.3]:80", want: "10.1.2.3"},
		{name: "non-ip remote addr kept verbatim", remoteAddr: "pipe", want: "pipe"},
		{
			name:       "headers ignored without trust",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "5.6.7.8"},
			want:       "10.0.0.1",
		},
		{
			name:       "leftmost forwarded entry",
			trustProxy: true,
			remoteAddr: "10.0.0.3:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1, 10.0.0.2"},
			want:       "1.2.3.4",
		},
		{
			name:       "forwarded ipv6 trimmed",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": " 2001:db8::1 "},
			want:       "2001:db8::1",
		},
		{
			name:       "forwarded beats real ip",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "5.6.7.8"},
			want:       "1.2.3.4",
		},
		{
			name:       "real ip when forwarded is garbage",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip, 1.2.3.4", "X-Real-IP": "5.6.7.8"},
			want:       "5.6.7.8",
		},
		{
			name:       "remote addr when every header is garbage",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "also unknown"},
			want:       "10.0.0.1",
		},
		{
			name:       "trusted without headers",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
