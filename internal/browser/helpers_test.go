package browser

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/multiverse/internal/async"
	"github.com/smileynet/multiverse/internal/catalog"
	"github.com/smileynet/multiverse/internal/imagecache"
	"github.com/smileynet/multiverse/internal/selection"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

// execBatch executes a tea.Cmd, handling both single commands and batch
// commands. It returns all resulting messages. Spinner ticks are skipped
// to avoid infinite recursion.
func execBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			if c != nil {
				result := c()
				if _, isTick := result.(spinner.TickMsg); !isTick {
					msgs = append(msgs, result)
				}
			}
		}
		return msgs
	}
	if _, isTick := msg.(spinner.TickMsg); isTick {
		return nil
	}
	return []tea.Msg{msg}
}

// feed runs cmd and applies every resulting message to m.
func feed(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range execBatch(t, cmd) {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func sampleRecords() catalog.Snapshot {
	return catalog.Snapshot{
		{ID: 1, Name: "Rick Sanchez", Status: "Alive", Species: "Human", Origin: "Earth (C-137)", ImageKey: "http://img.test/1.png"},
		{ID: 2, Name: "Morty Smith", Status: "Alive", Species: "Human", Origin: catalog.UnknownOrigin, ImageKey: "http://img.test/2.png"},
		{ID: 3, Name: "Mr. Poopybutthole", Status: "unknown", Species: "Alien", Origin: "", ImageKey: ""},
	}
}

// stubLister returns a fixed snapshot or error.
type stubLister struct {
	mu      sync.Mutex
	records catalog.Snapshot
	err     error
	calls   int
}

func (s *stubLister) ListRecords(context.Context) (catalog.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return catalog.Snapshot{}, s.err
	}
	return s.records, nil
}

// stubLoader returns a small solid image per key, or an error for keys in fail.
type stubLoader struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls map[string]int
}

func newStubLoader() *stubLoader {
	return &stubLoader{fail: map[string]bool{}, calls: map[string]int{}}
}

func (s *stubLoader) Load(_ context.Context, key string) (*imagecache.Image, error) {
	s.mu.Lock()
	s.calls[key]++
	fail := s.fail[key]
	s.mu.Unlock()
	if fail {
		return nil, &catalog.FetchError{Kind: catalog.KindHTTPStatus, URL: key, StatusCode: 404, Err: errors.New("not found")}
	}
	bm := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			bm.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return &imagecache.Image{Key: key, Format: "png", Bitmap: bm, Source: image.Pt(4, 4)}, nil
}

func (s *stubLoader) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func newController(loader selection.ImageLoader) selection.Controller {
	return selection.New(imagecache.New(), loader, async.NewRunner[*imagecache.Image]())
}

// newLoadedModel returns a sized model that has already received sampleRecords.
func newLoadedModel(t *testing.T, loader *stubLoader, opts ...Option) Model {
	t.Helper()
	lister := &stubLister{records: sampleRecords()}
	opts = append([]Option{WithRecordLister(lister)}, opts...)
	m := NewModel(newController(loader), opts...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)
	return feed(t, m, m.Init())
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}
