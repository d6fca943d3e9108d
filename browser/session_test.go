package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator_String(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{name: "document", loc: Locator{}, want: "document"},
		{name: "single query", loc: Query("div.a"), want: "div.a"},
		{name: "child chain", loc: Query("div.a").Child("span"), want: "div.a >> span"},
		{name: "nth on last", loc: Query("div.a").Child("span").Nth(2), want: "div.a >> span[2]"},
		{name: "nth zero is implicit", loc: Query("div.a").Nth(0), want: "div.a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.String())
		})
	}
}

func TestLocator_Immutable(t *testing.T) {
	base := Query("tbody")
	a := base.Child("row").Nth(1)
	b := base.Child("row").Nth(0)

	assert.Equal(t, "tbody", base.String())
	assert.Equal(t, "tbody >> row[1]", a.String())
	assert.Equal(t, "tbody >> row", b.String())
	assert.Equal(t, "row", a.Selector())
	assert.Equal(t, "", Locator{}.Selector())
}

func TestLocator_NthOnDocument(t *testing.T) {
	assert.True(t, Locator{}.Nth(3).IsZero())
}

func TestChildren(t *testing.T) {
	got := children(Query("ul"), "li", 3)
	require.Len(t, got, 3)
	assert.Equal(t, "ul >> li", got[0].String())
	assert.Equal(t, "ul >> li[2]", got[2].String())

	assert.Empty(t, children(Query("ul"), "li", 0))
}

func TestSleep_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewLauncher(t *testing.T) {
	for _, kind := range []string{"", "chromium", "Firefox", " chrome "} {
		l, err := NewLauncher(kind, Options{})
		require.NoError(t, err, kind)
		assert.NotNil(t, l)
	}

	_, err := NewLauncher("safari", Options{})
	assert.Error(t, err)
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultUserAgent, o.UserAgent)
	assert.Equal(t, "ko-KR", o.Locale)
	assert.Equal(t, 1920, o.ViewportWidth)
	assert.Equal(t, 1080, o.ViewportHeight)
	assert.Equal(t, 30*time.Second, o.Timeout)

	o = Options{UserAgent: "ua", Timeout: time.Second}.withDefaults()
	assert.Equal(t, "ua", o.UserAgent)
	assert.Equal(t, time.Second, o.Timeout)
}
