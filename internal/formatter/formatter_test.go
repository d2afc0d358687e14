package formatter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/desertthunder/polyplayer/internal/models"
	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/services"
	"github.com/desertthunder/polyplayer/internal/shared"
	th "github.com/desertthunder/polyplayer/internal/testing"
)

func item(id, title string) player.MediaItem {
	return player.NewMediaItem(&services.Video{VideoID: id, Title: title}, "https://audio.test/"+id, id)
}

func testPlays() []*models.PlayRecord {
	one := models.NewPlayRecord(1, 1, 100, 42, "abc", "Song One", "https://youtu.be/abc")
	one.SetID("play1")
	one.SetDetails("Artist One", 180)

	two := models.NewPlayRecord(2, 1, 100, 43, "def", "Song, Two", "https://open.spotify.com/track/xyz")
	two.SetID("play2")
	return []*models.PlayRecord{one, two}
}

func TestQueueCard(t *testing.T) {
	t.Run("now playing and up next", func(t *testing.T) {
		now := item("a", "First")
		card := NewQueueCard(player.QueueState{
			NowPlaying: &now,
			Pending:    []player.MediaItem{item("b", "Second"), item("c", "Third")},
			Playing:    true,
		})

		if card.Title != "Queue" || card.Footer != "PolyPlayer" {
			t.Errorf("unexpected title/footer %q %q", card.Title, card.Footer)
		}
		if card.NowPlaying != "[First](https://www.youtube.com/watch?v=a)" {
			t.Errorf("unexpected now playing %q", card.NowPlaying)
		}
		want := "1. [Second](https://www.youtube.com/watch?v=b)\n2. [Third](https://www.youtube.com/watch?v=c)\n"
		if card.UpNext != want {
			t.Errorf("expected %q, got %q", want, card.UpNext)
		}
		if card.Color != Color("a") {
			t.Error("colour should be seeded by the item playing now")
		}
	})

	t.Run("nothing pending", func(t *testing.T) {
		now := item("a", "First")
		card := NewQueueCard(player.QueueState{NowPlaying: &now, Playing: true})
		if card.UpNext != "" {
			t.Errorf("expected empty up next, got %q", card.UpNext)
		}
	})
}

func TestUpNext(t *testing.T) {
	t.Run("truncates with a summary", func(t *testing.T) {
		var items []player.MediaItem
		for i := range 100 {
			items = append(items, item(fmt.Sprintf("id%03d", i), strings.Repeat("x", 40)))
		}

		out := UpNext(items, UpNextLimit)
		summary := out[strings.LastIndex(out, "\n")+1:]

		lines := strings.Count(out, "\n")
		if want := fmt.Sprintf("and %d more...", 100-lines); summary != want {
			t.Errorf("expected %q, got %q", want, summary)
		}
		if len(out)-len(summary) > UpNextLimit {
			t.Errorf("listing exceeds limit: %d", len(out)-len(summary))
		}
	})

	t.Run("fits exactly", func(t *testing.T) {
		items := []player.MediaItem{item("a", "A")}
		line := "1. [A](https://www.youtube.com/watch?v=a)\n"
		if got := UpNext(items, len(line)); got != line {
			t.Errorf("expected %q, got %q", line, got)
		}
		if got := UpNext(items, len(line)-1); got != "and 1 more..." {
			t.Errorf("expected summary only, got %q", got)
		}
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		items := []player.MediaItem{item("a", strings.Repeat("é", 30)), item("b", "日本語の歌")}
		first := "1. [" + strings.Repeat("é", 30) + "](https://www.youtube.com/watch?v=a)\n"
		second := "2. [日本語の歌](https://www.youtube.com/watch?v=b)\n"

		limit := utf8.RuneCountInString(first + second)
		if got := UpNext(items, limit); got != first+second {
			t.Errorf("expected both items to fit in %d characters, got %q", limit, got)
		}
		if got := UpNext(items, limit-1); got != first+"and 1 more..." {
			t.Errorf("expected second item summarised, got %q", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := UpNext(nil, UpNextLimit); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})
}

func TestColor(t *testing.T) {
	if Color("a") != Color("a") {
		t.Error("colour should be deterministic")
	}
	if c := Color("abc"); c < 0 || c > 0xFFFFFF {
		t.Errorf("colour out of range: %x", c)
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testPlays())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Played At,Channel,Requested By,Video,Title,Author,Duration,Input\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "play1,") || !strings.Contains(output, ",100,42,abc,Song One,Artist One,180,") {
			t.Errorf("CSV missing first play: %s", output)
		}
		if !strings.Contains(output, `"Song, Two"`) {
			t.Errorf("CSV should quote titles containing commas: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testPlays(), "Play History")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Play History",
			"**Plays**: 2",
			"1. [Song One](https://www.youtube.com/watch?v=abc) by Artist One [3:00]",
			"2. [Song, Two](https://www.youtube.com/watch?v=def) [live]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testPlays())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Plays: 2\n") {
			t.Errorf("unexpected header: %s", output)
		}
		if !strings.Contains(output, "Artist One - Song One (abc)") {
			t.Errorf("missing first play: %s", output)
		}
	})

	t.Run("Export", func(t *testing.T) {
		for _, format := range []string{"", "text", "CSV", "md", "markdown"} {
			if _, err := Export(testPlays(), format); err != nil {
				t.Errorf("format %q failed: %v", format, err)
			}
		}

		if _, err := Export(testPlays(), "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("WriteExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.csv")
		if err := WriteExport(testPlays(), "csv", path); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "play2") {
			t.Errorf("unexpected file content: %s", content)
		}
	})

	t.Run("WriteExport bad path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "history.csv")
		if err := WriteExport(testPlays(), "csv", path); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}
