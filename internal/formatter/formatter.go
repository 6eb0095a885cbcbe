// package formatter renders playlists and queue state as CSV, JSON, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// Formats lists the accepted export formats, for flag help.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat accepts a format name or a common alias ("markdown", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Export renders the playlist in the given format.
func Export(p *models.Playlist, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(p)
	case FormatCSV:
		return ExportToCSV(p)
	case FormatMarkdown:
		return ExportToMarkdown(p)
	case FormatText:
		return ExportToText(p)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToJSON renders the playlist with its items as indented JSON.
func ExportToJSON(p *models.Playlist) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal playlist: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts a playlist's items to CSV with columns: Position, ID, Type, Title, URL, Duration
func ExportToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Type", "Title", "URL", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range p.MediaItems {
		record := []string{
			strconv.Itoa(item.Position),
			item.ID,
			item.Type.String(),
			item.Title,
			item.URL,
			strconv.Itoa(item.Duration),
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

// ExportToMarkdown converts a playlist to a Markdown document with a numbered item list.
func ExportToMarkdown(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Name))

	if p.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", p.Description))
	}

	buf.WriteString(fmt.Sprintf("**Items**: %d\n", p.Len()))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n", shared.FormatDuration(p.TotalDuration())))
	buf.WriteString(fmt.Sprintf("**Plays**: %d\n\n", p.PlayCount))

	buf.WriteString("## Items\n\n")
	for i, item := range p.MediaItems {
		title := item.Title
		if item.URL != "" {
			title = fmt.Sprintf("[%s](%s)", item.Title, item.URL)
		}
		buf.WriteString(fmt.Sprintf("%d. %s _%s_ [%s]\n", i+1, title, item.Type, shared.FormatDuration(item.Duration)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", p.Name))
	if p.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", p.Description))
	}
	buf.WriteString(fmt.Sprintf("Items: %d (%s)\n\n", p.Len(), shared.FormatDuration(p.TotalDuration())))

	for i, item := range p.MediaItems {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, item.Title, shared.FormatDuration(item.Duration)))
	}

	return buf.Bytes(), nil
}

// FormatQueueState renders the playback state: status, now playing, and the up-next queue.
func FormatQueueState(st models.QueueState) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Status: %s\n", st.Status()))
	if st.CurrentPlaylist != nil {
		b.WriteString(fmt.Sprintf("Playlist: %s (%d items)\n", st.CurrentPlaylist.Name, st.CurrentPlaylist.Len()))
	}

	if item := st.NowPlaying(); item != nil {
		marker := "⏸"
		if st.IsPlaying {
			marker = "▶"
		}
		source := "playlist"
		if st.QueueTrack != nil {
			source = "queue"
		}
		b.WriteString(fmt.Sprintf("Now: %s %s [%s] (%s)\n", marker, item.Title, shared.FormatDuration(item.Duration), source))
	} else {
		b.WriteString("Now: nothing\n")
	}

	if len(st.Queue) > 0 {
		b.WriteString("Up next:\n")
		for i, item := range st.Queue {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, item.Title))
		}
	}

	return b.String()
}

// DefaultFilename returns {playlist.ID}.{format}.
func DefaultFilename(p *models.Playlist, format Format) string {
	return fmt.Sprintf("%s.%s", p.ID, format)
}

// WriteExport renders the playlist and writes it to path, defaulting to [DefaultFilename].
func WriteExport(p *models.Playlist, format Format, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(p, format)
	}

	data, err := Export(p, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
