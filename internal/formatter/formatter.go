// package formatter renders queues for chat replies and exports play history to CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/polyplayer/internal/models"
	"github.com/desertthunder/polyplayer/internal/player"
	"github.com/desertthunder/polyplayer/internal/shared"
)

const (
	// UpNextLimit bounds the "Up next" listing in characters.
	UpNextLimit = 2000
	QueueTitle  = "Queue"
	QueueFooter = "PolyPlayer"
)

// QueueCard is the content of a queue reply, independent of how the chat surface draws it.
type QueueCard struct {
	Title      string
	Color      int
	NowPlaying string // empty when nothing is playing
	UpNext     string // empty when nothing is pending
	Footer     string
}

// NewQueueCard builds the card for state. The colour is derived from the item playing now, so it
// stays stable while that item plays.
func NewQueueCard(state player.QueueState) QueueCard {
	card := QueueCard{Title: QueueTitle, Footer: QueueFooter}

	seed := ""
	if state.NowPlaying != nil {
		card.NowPlaying = ItemLink(*state.NowPlaying)
		seed = state.NowPlaying.ID()
	}
	card.Color = Color(seed)
	card.UpNext = UpNext(state.Pending, UpNextLimit)
	return card
}

// ItemLink renders an item as a Markdown link to its watch page.
func ItemLink(item player.MediaItem) string {
	return fmt.Sprintf("[%s](%s)", item.Title(), item.WatchURL)
}

// UpNext lists items as numbered links, one per line, while the text fits in limit characters.
// Items that do not fit are summarised as "and N more...".
func UpNext(items []player.MediaItem, limit int) string {
	var (
		b     strings.Builder
		chars int
	)
	for i, item := range items {
		line := fmt.Sprintf("%d. %s\n", i+1, ItemLink(item))
		n := utf8.RuneCountInString(line)
		if chars+n > limit {
			fmt.Fprintf(&b, "and %d more...", len(items)-i)
			break
		}
		b.WriteString(line)
		chars += n
	}
	return b.String()
}

// Color maps seed to a 24-bit RGB colour.
func Color(seed string) int {
	h := fnv.New32a()
	h.Write([]byte(seed))
	return int(h.Sum32() & 0xFFFFFF)
}

// ExportToCSV converts play history to CSV with columns: ID, Played At, Channel, Requested By, Video, Title, Author, Duration, Input
func ExportToCSV(plays []*models.PlayRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Played At", "Channel", "Requested By", "Video", "Title", "Author", "Duration", "Input"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, play := range plays {
		record := []string{
			play.ID(),
			play.CreatedAt().UTC().Format(time.RFC3339),
			strconv.FormatUint(play.ChannelID(), 10),
			strconv.FormatUint(play.RequestedBy(), 10),
			play.VideoID(),
			play.Title(),
			play.Author(),
			strconv.Itoa(play.LengthSeconds()),
			play.Input(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts play history to a Markdown document
func ExportToMarkdown(plays []*models.PlayRecord, title string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Plays**: %d\n\n", len(plays)))

	buf.WriteString("## History\n\n")
	for i, play := range plays {
		authorPart := ""
		if play.Author() != "" {
			authorPart = fmt.Sprintf(" by %s", play.Author())
		}
		buf.WriteString(fmt.Sprintf("%d. [%s](%s)%s [%s]\n",
			i+1, play.Title(), shared.WatchURL(play.VideoID()), authorPart, shared.FormatDuration(play.LengthSeconds())))
	}

	return buf.Bytes(), nil
}

// ExportToText converts play history to plain text
func ExportToText(plays []*models.PlayRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Plays: %d\n\n", len(plays)))
	for i, play := range plays {
		buf.WriteString(fmt.Sprintf("%d. %s  %s - %s (%s)\n",
			i+1, play.CreatedAt().Local().Format(time.DateTime), play.Author(), play.Title(), play.VideoID()))
	}

	return buf.Bytes(), nil
}

// Export renders plays in the named format: "text", "csv" or "md".
func Export(plays []*models.PlayRecord, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "text", "txt":
		return ExportToText(plays)
	case "csv":
		return ExportToCSV(plays)
	case "md", "markdown":
		return ExportToMarkdown(plays, "Play History")
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders plays and writes them to path.
func WriteExport(plays []*models.PlayRecord, format, path string) error {
	data, err := Export(plays, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
