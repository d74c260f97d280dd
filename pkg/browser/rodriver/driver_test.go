// File: pkg/browser/rodriver/driver_test.go
package rodriver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webstep/pkg/browser"
	"github.com/xkilldash9x/webstep/pkg/browser/rodriver"
)

const page = `<!DOCTYPE html>
<html>
<head><title>Inbox</title></head>
<body>
  <input id="search" name="q">
  <ul><li class="msg">one</li><li class="msg">two</li></ul>
  <button id="confirm" onclick="confirm('sure?')">Delete all</button>
</body>
</html>`

func TestDriver_Rod(t *testing.T) {
	if testing.Short() {
		t.Skip("browser test")
	}
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("no local browser for rod")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	m := rodriver.NewManager(rodriver.Options{
		Headless:         true,
		Stealth:          true,
		ExecPath:         bin,
		Args:             []string{"--no-sandbox"},
		OperationTimeout: 10 * time.Second,
	}, zaptest.NewLogger(t))
	defer func() { _ = m.Shutdown(context.Background()) }()

	ctx := context.Background()
	d, err := m.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Navigate(ctx, srv.URL))

	title, err := d.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Inbox", title)

	items, err := d.FindElements(ctx, `//li[@class="msg"]`)
	require.NoError(t, err)
	require.Len(t, items, 2)
	text, err := items[1].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", text)

	inputs, err := d.FindElements(ctx, `//input[@id="search"]`)
	require.NoError(t, err)
	require.NoError(t, inputs[0].SendKeys(ctx, "hello"))
	v, err := inputs[0].Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	raw, err := d.ExecuteScript(ctx, "return arguments[0].value.length;", inputs[0])
	require.NoError(t, err)
	assert.JSONEq(t, "5", string(raw))

	_, err = d.ExecuteScript(ctx, "return $('li');")
	assert.True(t, browser.IsHelperMissing(err), "got %v", err)

	buttons, err := d.FindElements(ctx, `//button`)
	require.NoError(t, err)
	require.NoError(t, buttons[0].Click(ctx))
	require.Eventually(t, func() bool {
		msg, err := d.AlertText(ctx)
		return err == nil && msg == "sure?"
	}, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, d.DismissAlert(ctx))

	require.NoError(t, d.Close(ctx))
}
