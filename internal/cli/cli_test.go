package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikbrunner/minimark/internal/model"
)

// testEnv runs commands against a JSON store in a temp dir and a local
// title proxy.
type testEnv struct {
	rt      *runtime
	cfgPath string
	dir     string
	browsed []string
	copied  []string
	clip    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("url")
		contents := fmt.Sprintf("<html><head><title>Title for %s</title></head></html>", page)
		_ = json.NewEncoder(w).Encode(map[string]string{"contents": contents})
	}))
	t.Cleanup(proxy.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`
storage:
  backend: json
  path: %s
checker:
  proxy_url: %s
fetch:
  timeout: 2s
  max_retries: 0
logging:
  level: error
  pretty: false
`, filepath.Join(dir, "bookmarks.json"), proxy.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	env := &testEnv{rt: newRuntime("test"), cfgPath: cfgPath, dir: dir}
	env.rt.browse = func(url string) error {
		env.browsed = append(env.browsed, url)
		return nil
	}
	env.rt.copyClipboard = func(text string) error {
		env.copied = append(env.copied, text)
		return nil
	}
	env.rt.readClipboard = func() (string, error) { return env.clip, nil }
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	e.rt.out = &out
	err := e.rt.run(append([]string{"--config", e.cfgPath}, args...))
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "minimark %s", strings.Join(args, " "))
	return out
}

type addOutput struct {
	Link         model.Record `json:"link"`
	GroupID      string       `json:"groupId"`
	CreatedGroup bool         `json:"createdGroup"`
	Moved        int          `json:"moved"`
	NavigateTo   string       `json:"navigateTo"`
}

func (e *testEnv) add(t *testing.T, url string) addOutput {
	t.Helper()
	var res addOutput
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "--json", "add", url)), &res))
	return res
}

func (e *testEnv) ls(t *testing.T, args ...string) []model.Record {
	t.Helper()
	var recs []model.Record
	out := e.mustRun(t, append([]string{"--json", "ls"}, args...)...)
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	return recs
}

func (e *testEnv) seed(t *testing.T, recs []model.Record) {
	t.Helper()
	data, err := json.Marshal(recs)
	require.NoError(t, err)
	path := filepath.Join(e.dir, "seed.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	e.mustRun(t, "import", path)
}

func ms(t time.Time) *int64 {
	v := t.UnixMilli()
	return &v
}

func TestVersionFlag(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--version")

	assert.NoError(t, err)
	assert.Equal(t, "minimark test\n", out)
}

func TestSubcommandsRegistered(t *testing.T) {
	parser, _ := buildParser(newRuntime("test"))

	for _, name := range []string{
		"ls", "add", "open", "copy", "rename", "replace", "mkgroup", "group-from",
		"mv", "rm", "pin", "archive", "param", "check", "dead", "autoarchive",
		"words", "import", "export", "pick", "serve",
	} {
		assert.NotNil(t, parser.Find(name), "command %s", name)
	}
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "frobnicate")
	assert.Error(t, err)
}

func TestAddFetchesTitleAndLists(t *testing.T) {
	env := newTestEnv(t)

	res := env.add(t, "https://example.com/a")
	assert.Equal(t, "Title for https://example.com/a", res.Link.Title)
	assert.False(t, res.CreatedGroup)

	items := env.ls(t)
	require.Len(t, items, 1)
	assert.Equal(t, res.Link.ID, items[0].ID)
	assert.Equal(t, "https://example.com/a", items[0].URL)

	out := env.mustRun(t, "ls")
	assert.Contains(t, out, "Title for https://example.com/a")
}

func TestAddGroupsSameDomain(t *testing.T) {
	env := newTestEnv(t)

	env.add(t, "https://example.com/a")
	second := env.add(t, "https://example.com/b")

	assert.True(t, second.CreatedGroup)
	assert.Equal(t, 2, second.Moved)
	assert.Equal(t, second.GroupID, second.NavigateTo)

	top := env.ls(t)
	require.Len(t, top, 1)
	assert.Equal(t, "group", top[0].Type)
	assert.Equal(t, "example.com", top[0].Title)

	inside := env.ls(t, "--group", second.GroupID)
	assert.Len(t, inside, 2)
}

func TestAddRejectsDuplicateAndInvalid(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, "https://example.com/a")

	_, err := env.run(t, "add", "https://example.com/a")
	assert.ErrorIs(t, err, model.ErrDuplicateURL)

	_, err = env.run(t, "add", "not a url")
	assert.ErrorIs(t, err, model.ErrInvalidURL)

	_, err = env.run(t, "add")
	assert.ErrorContains(t, err, "--clipboard")
}

func TestAddFromClipboard(t *testing.T) {
	env := newTestEnv(t)
	env.clip = "  https://clip.example.com/page \n"

	out := env.mustRun(t, "add", "--clipboard")
	assert.Contains(t, out, "Title for https://clip.example.com/page")
}

func TestOpenRecordsClickAndAppliesParams(t *testing.T) {
	env := newTestEnv(t)
	link := env.add(t, "https://search.example.com/find?q=old&lang=en").Link

	out := env.mustRun(t, "param", link.ID, "q")
	assert.Contains(t, out, "q is now dynamic")

	env.mustRun(t, "open", link.ID, "--param", "q=golang")
	require.Len(t, env.browsed, 1)
	assert.Equal(t, "https://search.example.com/find?lang=en&q=golang", env.browsed[0])

	items := env.ls(t)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Clicks)

	out = env.mustRun(t, "open", link.ID, "--print")
	assert.Equal(t, "https://search.example.com/find?q=old&lang=en\n", out)

	_, err := env.run(t, "open", link.ID, "--param", "novalue")
	assert.ErrorContains(t, err, "want key=value")
}

func TestParamRejectsUnknownKey(t *testing.T) {
	env := newTestEnv(t)
	link := env.add(t, "https://example.com/page?a=1").Link

	_, err := env.run(t, "param", link.ID, "b")
	assert.Error(t, err)
}

func TestCopy(t *testing.T) {
	env := newTestEnv(t)
	link := env.add(t, "https://example.com/copy-me").Link

	env.mustRun(t, "copy", link.ID)
	assert.Equal(t, []string{"https://example.com/copy-me"}, env.copied)
}

func TestRenameAndReplace(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "https://a.example.org").Link
	env.add(t, "https://b.example.net")

	env.mustRun(t, "rename", a.ID, "  Golang Weekly  ")
	_, err := env.run(t, "rename", a.ID, "   ")
	assert.ErrorIs(t, err, model.ErrEmptyTitle)

	out := env.mustRun(t, "replace", "--find", "TITLE FOR", "--replace", "Page:")
	assert.Equal(t, "Replaced in 1 title(s)\n", out)

	titles := map[string]bool{}
	for _, r := range env.ls(t) {
		titles[r.Title] = true
	}
	assert.True(t, titles["Golang Weekly"])
	assert.True(t, titles["Page: https://b.example.net"])
}

func TestGroupsMoveAndDelete(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "https://a.example.org").Link
	b := env.add(t, "https://b.example.net").Link

	var g model.Record
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "--json", "mkgroup", "Reading")), &g))
	assert.Equal(t, "Reading", g.Title)

	out := env.mustRun(t, "mv", a.ID, b.ID, "--to", g.ID)
	assert.Equal(t, "Moved 2 item(s)\n", out)
	assert.Len(t, env.ls(t, "--group", g.ID), 2)

	out = env.mustRun(t, "mv", b.ID, "--top")
	assert.Equal(t, "Moved 1 item(s)\n", out)

	// Ungroup keeps the contents.
	env.mustRun(t, "rm", g.ID)
	top := env.ls(t)
	assert.Len(t, top, 2)
	for _, r := range top {
		assert.Equal(t, "link", r.Type)
	}
}

func TestMvNewGroupAndCascade(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "https://a.example.org").Link
	b := env.add(t, "https://b.example.net").Link

	out := env.mustRun(t, "mv", a.ID, b.ID, "--new-group", "Bundle")
	assert.Contains(t, out, "Created group")
	assert.Contains(t, out, "Moved 2 item(s)")

	top := env.ls(t)
	require.Len(t, top, 1)
	assert.Equal(t, "Bundle", top[0].Title)

	out = env.mustRun(t, "rm", "--cascade", top[0].ID)
	assert.Equal(t, "Deleted 1 item(s)\n", out)
	assert.Empty(t, env.ls(t))
}

func TestMvRequiresExactlyOneTarget(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "mv", "x")
	assert.ErrorContains(t, err, "exactly one of")

	_, err = env.run(t, "mv", "x", "--top", "--to", "y")
	assert.ErrorContains(t, err, "exactly one of")
}

func TestRmReportsFailures(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "https://a.example.org").Link

	out, err := env.run(t, "rm", a.ID, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, "Deleted 1 item(s), 1 failed\n", out)
}

func TestGroupFrom(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "https://a.example.org").Link

	out := env.mustRun(t, "group-from", a.ID, "Wrapped")
	assert.Contains(t, out, `Created group "Wrapped"`)

	top := env.ls(t)
	require.Len(t, top, 1)
	assert.Equal(t, "group", top[0].Type)
}

func TestPinAndArchive(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "https://a.example.org").Link

	assert.Equal(t, "Pinned "+a.ID+"\n", env.mustRun(t, "pin", a.ID))
	assert.True(t, env.ls(t)[0].IsPinned)
	assert.Equal(t, "Unpinned "+a.ID+"\n", env.mustRun(t, "pin", a.ID))

	env.mustRun(t, "archive", a.ID)
	assert.Empty(t, env.ls(t))
	archived := env.ls(t, "--archive")
	require.Len(t, archived, 1)
	assert.True(t, archived[0].IsArchived)

	_, err := env.run(t, "pin", a.ID)
	assert.ErrorIs(t, err, model.ErrArchived)

	env.mustRun(t, "archive", "--undo", a.ID)
	assert.Len(t, env.ls(t), 1)
}

func TestOpenUnarchives(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "https://a.example.org").Link
	env.mustRun(t, "archive", a.ID)

	env.mustRun(t, "open", a.ID)
	items := env.ls(t)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsArchived)
}

func TestImportAndExport(t *testing.T) {
	env := newTestEnv(t)
	groupID := "g1"
	env.seed(t, []model.Record{
		{ID: groupID, Type: "group", Title: "Docs"},
		{ID: "l1", Type: "link", Title: "Go", URL: "https://go.dev", ParentID: &groupID},
		{ID: "l2", Type: "link", Title: "Rust", URL: "https://rust-lang.org"},
	})

	// Re-importing the same file skips everything.
	out := env.mustRun(t, "import", filepath.Join(env.dir, "seed.json"))
	assert.Equal(t, "Imported 0 item(s) (3 skipped)\n", out)

	var exported []model.Record
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "export", "-")), &exported))
	assert.Len(t, exported, 3)

	htmlPath := filepath.Join(env.dir, "out.html")
	out = env.mustRun(t, "export", "--format", "html", htmlPath)
	assert.Contains(t, out, "Exported 3 item(s)")
	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<DT><H3 ADD_DATE=`)
	assert.Contains(t, string(data), `HREF="https://go.dev"`)

	// The HTML export imports into a fresh store.
	fresh := newTestEnv(t)
	out = fresh.mustRun(t, "import", htmlPath)
	assert.Equal(t, "Imported 3 item(s)\n", out)
}

func TestImportRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "bookmarks.txt")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	_, err := env.run(t, "import", path)
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = env.run(t, "import", "--format", "xml", path)
	assert.ErrorContains(t, err, "unknown import format")
}

func TestDeadLinks(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.seed(t, []model.Record{
		{ID: "dead", Type: "link", Title: "Gone", URL: "https://gone.example.com", Status: "offline", OfflineSince: ms(now.Add(-10 * 24 * time.Hour))},
		{ID: "flaky", Type: "link", Title: "Flaky", URL: "https://flaky.example.com", Status: "offline", OfflineSince: ms(now.Add(-time.Hour))},
		{ID: "fine", Type: "link", Title: "Fine", URL: "https://fine.example.com", Status: "online"},
	})

	out := env.mustRun(t, "dead")
	assert.Contains(t, out, "Gone")
	assert.NotContains(t, out, "Flaky")

	out = env.mustRun(t, "dead", "--remove")
	assert.Equal(t, "Removed 1 item(s)\n", out)
	assert.Len(t, env.ls(t), 2)
}

func TestAutoarchive(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.seed(t, []model.Record{
		{ID: "old", Type: "link", Title: "Old", URL: "https://old.example.com", LastClickDate: ms(now.AddDate(-2, 0, 0))},
		{ID: "recent", Type: "link", Title: "Recent", URL: "https://recent.example.com", LastClickDate: ms(now.Add(-time.Hour))},
		{ID: "never", Type: "link", Title: "Never", URL: "https://never.example.com"},
	})

	out := env.mustRun(t, "autoarchive", "--threshold", "1y")
	assert.Equal(t, "Archived 1 item(s)\n", out)

	archived := env.ls(t, "--archive")
	require.Len(t, archived, 1)
	assert.Equal(t, "old", archived[0].ID)

	_, err := env.run(t, "autoarchive", "--threshold", "2w")
	assert.ErrorContains(t, err, "unknown archive threshold")
}

func TestCheck(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, []model.Record{
		{ID: "l1", Type: "link", Title: "https://one.example.com", URL: "https://one.example.com"},
		{ID: "l2", Type: "link", Title: "Two", URL: "https://two.example.com"},
	})

	var results []checkOutput
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "--json", "check", "--all")), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, string(model.StatusOnline), r.Status)
	}

	// Placeholder titles are replaced, real titles are kept.
	titles := map[string]string{}
	for _, r := range env.ls(t) {
		titles[r.ID] = r.Title
	}
	assert.Equal(t, "Title for https://one.example.com", titles["l1"])
	assert.Equal(t, "Two", titles["l2"])

	// Nothing is due right after a sweep.
	out := env.mustRun(t, "check", "--all")
	assert.Equal(t, "No links due for a check\n", out)

	out = env.mustRun(t, "check", "--force", "l2")
	assert.Contains(t, out, "title updated")

	_, err := env.run(t, "check")
	assert.ErrorContains(t, err, "either a link id or --all")
}

func TestWords(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, []model.Record{
		{ID: "l1", Type: "link", Title: "Go testing guide", URL: "https://one.example.com"},
		{ID: "l2", Type: "link", Title: "Testing in Rust", URL: "https://two.example.com"},
		{ID: "l3", Type: "link", Title: "Cooking", URL: "https://three.example.com"},
	})

	var words []struct {
		Word  string `json:"word"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "--json", "words", "--top", "2")), &words))
	require.Len(t, words, 2)
	assert.Equal(t, "testing", words[0].Word)
	assert.Equal(t, 2, words[0].Count)

	out := env.mustRun(t, "words", "testing")
	assert.Contains(t, out, "Go testing guide")
	assert.NotContains(t, out, "Cooking")

	out = env.mustRun(t, "words", "testing", "--new-group", "Testing")
	assert.Contains(t, out, "Moved 2 item(s)")

	out = env.mustRun(t, "words", "cooking", "--delete")
	assert.Equal(t, "Deleted 1 item(s)\n", out)

	_, err := env.run(t, "words", "--delete")
	assert.ErrorContains(t, err, "name the words")
}

func TestPickSingleResultOpensDirectly(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, []model.Record{
		{ID: "l1", Type: "link", Title: "Go Documentation", URL: "https://go.dev/doc"},
		{ID: "l2", Type: "link", Title: "Cooking", URL: "https://food.example.com"},
	})

	out := env.mustRun(t, "pick", "godoc")
	assert.Contains(t, out, "Opening: Go Documentation")
	assert.Equal(t, []string{"https://go.dev/doc"}, env.browsed)

	out = env.mustRun(t, "pick", "zzzz")
	assert.Equal(t, "No bookmarks found for 'zzzz'\n", out)
}
