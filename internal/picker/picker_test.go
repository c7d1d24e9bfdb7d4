package picker

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/search"
)

func twoResults() []search.SearchResult {
	return []search.SearchResult{
		{Bookmark: model.Bookmark{ID: "b1", Kind: model.KindLink, Title: "GitHub", URL: "https://github.com"}},
		{Bookmark: model.Bookmark{ID: "b2", Kind: model.KindLink, Title: "GitLab", URL: "https://gitlab.com"}},
	}
}

func press(p Picker, msg tea.KeyMsg) (Picker, tea.Cmd) {
	m, cmd := p.Update(msg)
	return m.(Picker), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPicker_InitialState(t *testing.T) {
	p := New(twoResults(), "git")

	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
	if len(p.results) != 2 {
		t.Errorf("expected 2 results, got %d", len(p.results))
	}
}

func TestPicker_NavigateDown(t *testing.T) {
	p, _ := press(New(twoResults(), "git"), runes("j"))

	if p.cursor != 1 {
		t.Errorf("expected cursor at 1, got %d", p.cursor)
	}
}

func TestPicker_NavigateUp(t *testing.T) {
	p := New(twoResults(), "git")
	p.cursor = 1

	p, _ = press(p, runes("k"))

	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
}

func TestPicker_BoundsCheck(t *testing.T) {
	p := New(twoResults()[:1], "git")

	p, _ = press(p, runes("k"))
	if p.cursor != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", p.cursor)
	}

	p, _ = press(p, runes("j"))
	if p.cursor != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", p.cursor)
	}
}

func TestPicker_TopBottom(t *testing.T) {
	p := New(twoResults(), "git")

	p, _ = press(p, runes("G"))
	if p.cursor != 1 {
		t.Errorf("expected cursor at 1 after G, got %d", p.cursor)
	}

	p, _ = press(p, runes("g"))
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0 after g, got %d", p.cursor)
	}
}

func TestPicker_Select(t *testing.T) {
	p, cmd := press(New(twoResults(), "git"), tea.KeyMsg{Type: tea.KeyEnter})

	if !p.selected {
		t.Error("expected selected to be true after Enter")
	}
	if cmd == nil {
		t.Error("expected quit command after selection")
	}
}

func TestPicker_SelectWithoutResults(t *testing.T) {
	p, cmd := press(New(nil, "zzz"), tea.KeyMsg{Type: tea.KeyEnter})

	if p.selected {
		t.Error("expected nothing to be selected")
	}
	if cmd != nil {
		t.Error("expected no command when there is nothing to select")
	}
	if p.SelectedBookmark() != nil {
		t.Error("expected nil bookmark")
	}
}

func TestPicker_Cancel(t *testing.T) {
	for _, msg := range []tea.KeyMsg{{Type: tea.KeyEsc}, runes("q")} {
		p, cmd := press(New(twoResults(), "git"), msg)

		if !p.Cancelled() {
			t.Errorf("expected cancelled after %q", msg.String())
		}
		if cmd == nil {
			t.Errorf("expected quit command after %q", msg.String())
		}
	}
}

func TestPicker_SelectedBookmark(t *testing.T) {
	p := New(twoResults(), "git")
	p.cursor = 1
	p.selected = true

	got := p.SelectedBookmark()
	if got == nil || got.ID != "b2" {
		t.Fatalf("expected b2 to be selected, got %+v", got)
	}
}

func TestPicker_SelectedBookmark_Cancelled(t *testing.T) {
	p := New(twoResults(), "git")
	p.cancelled = true

	if got := p.SelectedBookmark(); got != nil {
		t.Error("expected nil when cancelled")
	}
}

func TestPicker_ArrowKeys(t *testing.T) {
	p := New(twoResults(), "git")

	p, _ = press(p, tea.KeyMsg{Type: tea.KeyDown})
	if p.cursor != 1 {
		t.Errorf("expected cursor at 1 after down arrow, got %d", p.cursor)
	}

	p, _ = press(p, tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0 after up arrow, got %d", p.cursor)
	}
}

func TestPicker_ScrollsWithCursor(t *testing.T) {
	var results []search.SearchResult
	for i := 0; i < 20; i++ {
		results = append(results, search.SearchResult{Bookmark: model.Bookmark{ID: string(rune('a' + i)), Title: "item"}})
	}
	p := New(results, "item")
	m, _ := p.Update(tea.WindowSizeMsg{Width: 80, Height: 11})
	p = m.(Picker)

	if p.visible() != 3 {
		t.Fatalf("expected 3 visible entries, got %d", p.visible())
	}
	for i := 0; i < 5; i++ {
		p, _ = press(p, runes("j"))
	}
	if p.offset != 3 {
		t.Errorf("expected offset 3, got %d", p.offset)
	}

	p, _ = press(p, runes("g"))
	if p.offset != 0 {
		t.Errorf("expected offset 0 after g, got %d", p.offset)
	}
}

func TestPicker_View(t *testing.T) {
	results := twoResults()
	results[1].Bookmark.Pinned = true
	out := New(results, "git").View()

	for _, want := range []string{"Search: git (2 results)", "GitHub", "https://gitlab.com", "★", "enter: open"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}

	empty := New(nil, "zzz").View()
	if !strings.Contains(empty, "No matches") {
		t.Error("expected empty view to say there are no matches")
	}
}

func TestPicker_WithRankedResults(t *testing.T) {
	items := []model.Bookmark{
		{ID: "1", Kind: model.KindLink, Title: "Go Documentation", URL: "https://go.dev/doc"},
		{ID: "2", Kind: model.KindLink, Title: "Rust Book", URL: "https://doc.rust-lang.org/book"},
	}
	results := search.Rank(items, "godoc")
	if len(results) == 0 {
		t.Fatal("expected at least one ranked result")
	}

	p, _ := press(New(results, "godoc"), tea.KeyMsg{Type: tea.KeyEnter})
	if got := p.SelectedBookmark(); got == nil || got.ID != "1" {
		t.Errorf("expected Go Documentation to be picked, got %+v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("https://example.com", 10); got != "https://e…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
