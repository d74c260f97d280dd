// File: pkg/browser/static/driver_test.go
package static_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/webstep/pkg/browser"
	. "github.com/xkilldash9x/webstep/pkg/browser/static"
)

const formPage = `<!DOCTYPE html>
<html>
<head><title> Sign up </title></head>
<body>
  <h1>Welcome</h1>
  <p style="display: none">Secret text</p>
  <form id="signup" action="/done" method="post">
    <label for="user">User name</label>
    <input type="text" id="user" name="username" value="guest">
    <input type="hidden" name="token" value="t0k">
    <textarea name="bio">old bio</textarea>
    <input type="checkbox" id="tos" name="tos">
    <input type="radio" name="plan" id="free" value="free" checked>
    <input type="radio" name="plan" id="pro" value="pro">
    <select name="color">
      <option value="r">Red</option>
      <option value="g">Green</option>
    </select>
    <select name="tags" multiple>
      <option value="a" selected>A</option>
      <option value="b">B</option>
    </select>
    <input type="text" name="locked" disabled>
    <button>Go</button>
  </form>
  <a href="/next">Next</a>
  <iframe id="frame" srcdoc="&lt;p id='inner'&gt;Inside&lt;/p&gt;"></iframe>
</body>
</html>`

func newDriver(t *testing.T) *Driver {
	t.Helper()
	d := New(WithLogger(zaptest.NewLogger(t)), WithPage("http://example.test/done", "<title>Done</title>"))
	require.NoError(t, d.LoadHTML("http://example.test/form", formPage))
	return d
}

func one(t *testing.T, d browser.Querier, xp string) browser.Element {
	t.Helper()
	els, err := d.FindElements(context.Background(), xp)
	require.NoError(t, err)
	require.Len(t, els, 1, "expected one match for %s", xp)
	return els[0]
}

func TestDriver_TitleAndURL(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	title, err := d.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sign up", title)

	u, err := d.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/form", u)
}

func TestDriver_FindElements(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	els, err := d.FindElements(ctx, `//input[@type="radio"]`)
	require.NoError(t, err)
	assert.Len(t, els, 2)

	_, err = d.FindElements(ctx, `//input[`)
	assert.Error(t, err, "malformed expressions are reported")

	form := one(t, d, `//form`)
	inner, err := form.FindElements(ctx, `.//textarea`)
	require.NoError(t, err)
	assert.Len(t, inner, 1)
}

func TestDriver_LabelUnionQuery(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	els, err := d.FindElements(ctx, `.//input[@id=//label[contains(normalize-space(.), "User")]/@for][@type="text"]`)
	require.NoError(t, err)
	require.Len(t, els, 1)
	name, err := els[0].Attribute(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "username", name)
}

func TestElement_Visibility(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	tests := []struct {
		xpath     string
		displayed bool
		enabled   bool
	}{
		{`//h1`, true, true},
		{`//p`, false, true},
		{`//input[@name="token"]`, false, true},
		{`//input[@name="locked"]`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.xpath, func(t *testing.T) {
			el := one(t, d, tt.xpath)
			shown, err := el.IsDisplayed(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.displayed, shown)
			on, err := el.IsEnabled(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, on)
		})
	}

	text, err := one(t, d, `//p`).Text(ctx)
	require.NoError(t, err)
	assert.Empty(t, text, "hidden elements render no text")
}

func TestElement_TypingAndClearing(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	user := one(t, d, `//input[@id="user"]`)
	require.NoError(t, user.SendKeys(ctx, "-1"))
	v, err := user.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "guest-1", v)

	require.NoError(t, user.Clear(ctx))
	require.NoError(t, user.SendKeys(ctx, "alice"))
	v, _ = user.Attribute(ctx, "value")
	assert.Equal(t, "alice", v)

	focused, err := d.HasFocus(ctx, user)
	require.NoError(t, err)
	assert.True(t, focused)

	bio := one(t, d, `//textarea`)
	require.NoError(t, bio.SendKeys(ctx, browser.KeyDelete+"new"))
	v, _ = bio.Attribute(ctx, "value")
	assert.Equal(t, "new", v)

	assert.Error(t, one(t, d, `//input[@id="tos"]`).Clear(ctx))
}

func TestElement_Checkboxes(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	tos := one(t, d, `//input[@id="tos"]`)
	on, _ := tos.IsSelected(ctx)
	assert.False(t, on)

	require.NoError(t, tos.Click(ctx))
	on, _ = tos.IsSelected(ctx)
	assert.True(t, on)

	require.NoError(t, tos.Click(ctx))
	on, _ = tos.IsSelected(ctx)
	assert.False(t, on)
}

func TestElement_Radios(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	free, pro := one(t, d, `//input[@id="free"]`), one(t, d, `//input[@id="pro"]`)
	require.NoError(t, pro.Click(ctx))

	on, _ := pro.IsSelected(ctx)
	assert.True(t, on)
	on, _ = free.IsSelected(ctx)
	assert.False(t, on, "choosing a radio clears the rest of its group")
}

func TestElement_LabelClickTargetsControl(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	require.NoError(t, one(t, d, `//label`).Click(ctx))
	focused, err := d.HasFocus(ctx, one(t, d, `//input[@id="user"]`))
	require.NoError(t, err)
	assert.True(t, focused)
}

func TestElement_Options(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	red := one(t, d, `//select[@name="color"]/option[@value="r"]`)
	green := one(t, d, `//select[@name="color"]/option[@value="g"]`)
	on, _ := red.IsSelected(ctx)
	assert.True(t, on, "the first option of a single select is selected by default")

	require.NoError(t, green.Click(ctx))
	on, _ = red.IsSelected(ctx)
	assert.False(t, on)
	v, _ := one(t, d, `//select[@name="color"]`).Attribute(ctx, "value")
	assert.Equal(t, "g", v)

	a := one(t, d, `//select[@name="tags"]/option[@value="a"]`)
	b := one(t, d, `//select[@name="tags"]/option[@value="b"]`)
	require.NoError(t, b.Click(ctx))
	require.NoError(t, a.Click(ctx))
	on, _ = a.IsSelected(ctx)
	assert.False(t, on, "clicking in a multiple select toggles")
	on, _ = b.IsSelected(ctx)
	assert.True(t, on)
}

func TestElement_SubmitRecordsAndFollows(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	require.NoError(t, one(t, d, `//input[@id="tos"]`).Click(ctx))
	require.NoError(t, one(t, d, `//button`).Click(ctx))

	subs := d.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "POST", subs[0].Method)
	assert.Equal(t, "guest", subs[0].Values.Get("username"))
	assert.Equal(t, "on", subs[0].Values.Get("tos"))
	assert.Equal(t, "free", subs[0].Values.Get("plan"))
	assert.Equal(t, []string{"a"}, subs[0].Values["tags"])
	assert.NotContains(t, subs[0].Values, "locked", "disabled controls are not submitted")

	u, _ := d.CurrentURL(ctx)
	assert.Equal(t, "http://example.test/done", u)
}

func TestElement_LinkNavigation(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.AddPage("http://example.test/next", "<html><body><h1>Next page</h1></body></html>")

	link := one(t, d, `//a`)
	href, err := link.Attribute(ctx, "href")
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/next", href)

	require.NoError(t, link.Click(ctx))
	text, err := one(t, d, `//h1`).Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Next page", text)
}

func TestDriver_Frames(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	require.NoError(t, d.SwitchToFrame(ctx, one(t, d, `//iframe`)))
	inner := one(t, d, `//*[@id="inner"]`)
	text, _ := inner.Text(ctx)
	assert.Equal(t, "Inside", text)

	require.NoError(t, d.SwitchToDefault(ctx))
	els, err := d.FindElements(ctx, `//*[@id="inner"]`)
	require.NoError(t, err)
	assert.Empty(t, els)
}

func TestDriver_FindBySelector(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	els, err := d.FindBySelector(ctx, "form#signup input[type=radio]")
	require.NoError(t, err)
	assert.Len(t, els, 2)

	parents, err := d.FindParentsBySelector(ctx, "form#signup input[type=radio]")
	require.NoError(t, err)
	require.Len(t, parents, 1, "siblings share one parent")
	id, err := parents[0].Attribute(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "signup", id)
}

func TestDriver_ScriptsAndAlertsUnsupported(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	_, err := d.ExecuteScript(ctx, "return 1")
	assert.ErrorIs(t, err, browser.ErrUnsupported)
	_, err = d.AlertText(ctx)
	assert.ErrorIs(t, err, browser.ErrNoAlert)
}

func TestDriver_NavigateFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><head><title>On disk</title></head></html>"), 0o600))

	d := New()
	require.NoError(t, d.Navigate(ctx, "file://"+filepath.ToSlash(path)))
	title, err := d.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "On disk", title)

	err = d.Navigate(ctx, "file://"+filepath.ToSlash(filepath.Join(dir, "missing.html")))
	var te *browser.TransportError
	assert.ErrorAs(t, err, &te)
}
