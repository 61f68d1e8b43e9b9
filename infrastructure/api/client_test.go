package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "prospectwatch-client/pkg/errors"
)

type staticCreds string

func (s staticCreds) Credential() string { return string(s) }

func newTestClient(t *testing.T, handler http.Handler, cred string) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, 5*time.Second, staticCreds(cred), zap.NewNop())
	return client, server
}

func TestClient_AttachesBearerCredential(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}), "tok-123")

	err := client.Do(context.Background(), http.MethodGet, "/companies/tracked", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_WithoutAuthOmitsHeader(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}), "tok-123")

	err := client.Do(context.Background(), http.MethodGet, "/health", nil, nil, WithoutAuth())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_PostFormUsesURLEncoding(t *testing.T) {
	var gotContentType, gotUsername string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotUsername = r.PostFormValue("username")
		w.Write([]byte(`{"access_token":"t"}`))
	}), "")

	form := url.Values{}
	form.Set("username", "a@b.com")
	form.Set("password", "secret")

	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := client.PostForm(context.Background(), "/auth/login", form, &out, WithoutAuth())
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "a@b.com", gotUsername)
	assert.Equal(t, "t", out.AccessToken)
}

func TestClient_ConcurrentUnauthorizedFiresLogoutOnce(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"token expired"}`))
	}), "stale")

	var fired atomic.Int32
	client.SetUnauthorizedHandler(func(reason string) {
		fired.Add(1)
	}, 2*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.Do(context.Background(), http.MethodGet, "/updates", nil, nil)
			assert.True(t, apperrors.IsUnauthorized(err))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fired.Load())
}

func TestClient_UnauthorizedFiresAgainAfterCooldown(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), "stale")

	var fired atomic.Int32
	client.SetUnauthorizedHandler(func(reason string) {
		fired.Add(1)
	}, 20*time.Millisecond)

	client.Do(context.Background(), http.MethodGet, "/a", nil, nil)
	time.Sleep(50 * time.Millisecond)
	client.Do(context.Background(), http.MethodGet, "/b", nil, nil)

	assert.Equal(t, int32(2), fired.Load())
}

func TestClient_AnonymousUnauthorizedDoesNotLogout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"bad credentials"}`))
	}), "tok-held")

	var fired atomic.Int32
	client.SetUnauthorizedHandler(func(reason string) {
		fired.Add(1)
	}, 2*time.Second)

	// A mistyped re-login fails with 401 on the anonymous login request;
	// the held session must stay up.
	form := url.Values{}
	form.Set("username", "a@b.com")
	form.Set("password", "wrong")
	err := client.PostForm(context.Background(), "/auth/login", form, nil, WithoutAuth())
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, int32(0), fired.Load())

	// An authenticated request hitting 401 afterwards still fires at once:
	// the anonymous failure spent nothing from the debounce window.
	err = client.Do(context.Background(), http.MethodGet, "/updates", nil, nil)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, int32(1), fired.Load())
}

func TestClient_UnauthorizedBeforeHandlerDoesNotSpendDebounce(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), "stale")

	// 401 lands before any handler is installed.
	client.Do(context.Background(), http.MethodGet, "/a", nil, nil)

	var fired atomic.Int32
	client.SetUnauthorizedHandler(func(reason string) {
		fired.Add(1)
	}, time.Minute)

	client.Do(context.Background(), http.MethodGet, "/b", nil, nil)
	assert.Equal(t, int32(1), fired.Load())
}

func TestClient_ForbiddenDoesNotLogout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}), "tok")

	var fired atomic.Int32
	client.SetUnauthorizedHandler(func(reason string) {
		fired.Add(1)
	}, time.Second)

	err := client.Do(context.Background(), http.MethodGet, "/organization", nil, nil)
	apiErr := apperrors.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, "HTTP_403", apiErr.Code)
	assert.Equal(t, int32(0), fired.Load())
}

func TestClient_ErrorEnvelopePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{"detail field", `{"detail":"name is required"}`, "name is required"},
		{"message field", `{"message":"name is required"}`, "name is required"},
		{"error field", `{"error":"name is required"}`, "name is required"},
		{"detail wins over message", `{"detail":"from detail","message":"from message"}`, "from detail"},
		{"no known field", `{"oops":"x"}`, "invalid request"},
		{"non-json body", `<html>bad gateway</html>`, "invalid request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(tc.body))
			}), "tok")

			err := client.Do(context.Background(), http.MethodPost, "/companies/tracked", map[string]string{}, nil)
			apiErr := apperrors.AsAPIError(err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tc.detail, apiErr.Message)
		})
	}
}

func TestClient_NetworkFailureClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(server.URL, time.Second, staticCreds(""), zap.NewNop())
	server.Close() // nothing is listening anymore

	err := client.Do(context.Background(), http.MethodGet, "/updates", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsNetwork(err))
	assert.Equal(t, apperrors.NetworkErrorMessage, apperrors.UserMessage(err))
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [`))
	}), "tok")

	var out Page[map[string]any]
	err := client.Do(context.Background(), http.MethodGet, "/updates", nil, &out)
	apiErr := apperrors.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeUnknown, apiErr.Code)
}

func TestNewPage_Flags(t *testing.T) {
	page := NewPage([]int{1, 2, 3}, 2, 3, 8)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
	assert.Equal(t, 8, page.Total)

	last := NewPage([]int{7, 8}, 3, 3, 8)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}
