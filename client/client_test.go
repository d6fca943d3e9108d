package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<html><body><form>
<input id="id" name="id" type="text">
<input id="pw" name="pw" type="password">
<button id="log.login">로그인</button>
</form></body></html>`

func TestProbe_LoginPage(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(loginPage))
	}))
	defer srv.Close()

	p, err := NewProber("", "probe-agent", nil)
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "HTTP/1.1", res.Protocol)
	assert.True(t, res.LoginFormFound)
	assert.False(t, res.Blocked)
	assert.Empty(t, res.Error)
	assert.Positive(t, res.TotalDuration)
	assert.Equal(t, "probe-agent", gotUA)
}

func TestProbe_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewProber("", "ua", nil)
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.Equal(t, "portal refused the request with HTTP 429", res.BlockReason)
	require.NotNil(t, res.BlockedSince)
	assert.Equal(t, p.Safety().Since(), *res.BlockedSince)
	assert.False(t, res.LoginFormFound)
	assert.True(t, p.Safety().IsTriggered())
}

func TestProbe_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewProber("", "ua", nil)
	require.NoError(t, err)

	res, err := p.Probe(context.Background(), url)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Error)
	assert.Zero(t, res.StatusCode)
	assert.False(t, res.Blocked)
}

func TestProbe_RepeatedTransportErrorsBlock(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sm := NewSafetyManager()
	sm.MaxConsecutiveErrors = 2
	p, err := NewProber("", "ua", sm)
	require.NoError(t, err)

	first, err := p.Probe(context.Background(), url)
	require.NoError(t, err)
	assert.False(t, first.Blocked)

	second, err := p.Probe(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, second.Blocked)
	assert.Contains(t, second.BlockReason, "2 consecutive transport failures")
	assert.NotNil(t, second.BlockedSince)
}

func TestNewProber_BadProxy(t *testing.T) {
	_, err := NewProber("socks5://[::1", "ua", nil)
	assert.Error(t, err)
}

func TestHasLoginForm(t *testing.T) {
	assert.True(t, HasLoginForm(loginPage))
	assert.False(t, HasLoginForm(`<html><body><input id="id"></body></html>`))
	assert.False(t, HasLoginForm(""))
}
