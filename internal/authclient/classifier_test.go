package authclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := classifier{
		unauthorizedStatus: http.StatusUnauthorized,
		credentialPaths:    []string{"/v1/auth/login", "/v1/auth/register", "/v1/auth/refresh/"},
	}
	tests := []struct {
		name           string
		path           string
		status         int
		err            error
		alreadyRetried bool
		expected       disposition
	}{
		{"success", "/v1/plants", http.StatusOK, nil, false, passThrough},
		{"unrelated failure", "/v1/plants", http.StatusInternalServerError, nil, false, passThrough},
		{"forbidden", "/v1/plants", http.StatusForbidden, nil, false, passThrough},
		{"transport error", "/v1/plants", 0, errors.New("connection refused"), false, passThrough},
		{"expired credentials", "/v1/plants", http.StatusUnauthorized, nil, false, refreshAndRetry},
		{"expired credentials after replay", "/v1/plants", http.StatusUnauthorized, nil, true, passThrough},
		{"login endpoint", "/v1/auth/login", http.StatusUnauthorized, nil, false, passThrough},
		{"register endpoint", "/v1/auth/register", http.StatusUnauthorized, nil, false, passThrough},
		{"refresh endpoint", "/v1/auth/refresh", http.StatusUnauthorized, nil, false, passThrough},
		{"login endpoint with trailing slash", "/v1/auth/login/", http.StatusUnauthorized, nil, false, passThrough},
		{"path below a credential endpoint", "/v1/auth/login/history", http.StatusUnauthorized, nil, false, refreshAndRetry},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://backend.local"+test.path, nil)
			p := &pendingRequest{original: req, alreadyRetried: test.alreadyRetried}
			var resp *http.Response
			if test.err == nil {
				resp = &http.Response{StatusCode: test.status}
			}
			assert.Equal(t, test.expected, c.classify(p, resp, test.err))
		})
	}
}

func TestDispositionString(t *testing.T) {
	assert.Equal(t, "passThrough", passThrough.String())
	assert.Equal(t, "refreshAndRetry", refreshAndRetry.String())
}
