// Package render turns drafts into read-only previews, as HTML for the API and as styled
// text for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/debemdeboas/roteiro/internal/cache"
	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/util"
	"github.com/gomarkdown/markdown"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

const (
	FormatHTML     = "html"
	FormatTerminal = "term"
)

// Preview is the display form of a draft shared by both renderers.
type Preview struct {
	Kind        draft.Kind
	Title       string
	Description string
	Place       string
	Category    string
	Images      []PreviewImage
}

type PreviewImage struct {
	URL     string
	Pending string // local file name while not uploaded
}

func NewPreview(d *draft.Draft) Preview {
	p := Preview{Kind: d.Kind}
	switch d.Kind {
	case draft.KindTip:
		p.Title = d.Tip.Title
		p.Description = d.Tip.Description
		p.Place = d.Tip.Location
		p.Category = string(d.Tip.Category)
		for _, m := range d.Tip.Media {
			p.Images = append(p.Images, previewImage(m))
		}
	case draft.KindGuide:
		p.Title = d.Guide.Title
		p.Description = d.Guide.Description
		p.Place = d.Guide.City
		p.Category = string(d.Guide.Category)
		if d.Guide.Cover != nil {
			p.Images = append(p.Images, previewImage(*d.Guide.Cover))
		}
	}
	return p
}

func previewImage(m draft.Media) PreviewImage {
	if m.Pending != nil {
		return PreviewImage{Pending: m.Pending.Name}
	}
	return PreviewImage{URL: m.URL}
}

// Markdown renders description text. Raw HTML in the input is dropped.
func Markdown(md []byte) []byte {
	md = markdown.NormalizeNewlines(md)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoIntraEmphasis)
	r := md_html.NewRenderer(md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.SkipHTML | md_html.HrefTargetBlank | md_html.Safelink,
	})
	return markdown.ToHTML(md, p, r)
}

func HTML(p Preview) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "<article class=\"preview preview-%s\">\n", p.Kind)
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(p.Title))
	fmt.Fprintf(&b, "<p class=\"meta\"><span class=\"category\">%s</span> <span class=\"place\">%s</span></p>\n",
		html.EscapeString(p.Category), html.EscapeString(p.Place))

	if len(p.Images) > 0 {
		b.WriteString("<div class=\"gallery\">\n")
		for _, img := range p.Images {
			if img.Pending != "" {
				fmt.Fprintf(&b, "<figure class=\"pending\">%s</figure>\n", html.EscapeString(img.Pending))
				continue
			}
			fmt.Fprintf(&b, "<img src=\"%s\" alt=\"\" loading=\"lazy\">\n", html.EscapeString(img.URL))
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("<div class=\"description\">\n")
	b.Write(Markdown([]byte(p.Description)))
	b.WriteString("</div>\n</article>\n")
	return []byte(b.String())
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	imageStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	frameStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	descWrapWidth = 72
)

func Terminal(p Preview) string {
	lines := []string{
		titleStyle.Render(p.Title),
		metaStyle.Render(strings.TrimSpace(p.Category + " · " + p.Place)),
		"",
		lipgloss.NewStyle().Width(descWrapWidth).Render(p.Description),
	}

	if len(p.Images) > 0 {
		lines = append(lines, "")
		for i, img := range p.Images {
			if img.Pending != "" {
				lines = append(lines, pendingStyle.Render(fmt.Sprintf("%d. %s (not uploaded)", i+1, img.Pending)))
				continue
			}
			lines = append(lines, imageStyle.Render(fmt.Sprintf("%d. %s", i+1, img.URL)))
		}
	}

	return frameStyle.Render(strings.Join(lines, "\n"))
}

// Mutex to protect the check-render-set operation in Cached
var renderCacheMutex sync.Mutex

// Cached renders d in format, reusing the output for identical drafts.
func Cached(d *draft.Draft, format string) ([]byte, error) {
	encoded, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("error encoding draft: %w", err)
	}
	contentHash := util.ContentHash(encoded)

	if cached, found := cache.GetRenderedPreview(contentHash, format); found {
		renderLogger.Debug().Str("contentHash", contentHash).Str("format", format).Msg("Cache hit for preview")
		return cached.Body, nil
	}

	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	var body []byte
	switch format {
	case FormatHTML:
		body = HTML(NewPreview(d))
	case FormatTerminal:
		body = []byte(Terminal(NewPreview(d)))
	default:
		return nil, fmt.Errorf("unknown preview format %q", format)
	}

	cache.SetRenderedPreview(contentHash, format, body)
	return body, nil
}
