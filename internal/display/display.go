// Package display renders dispatch results on a console.
//
// A Presenter prints a Page, a numbered list of items, in one of two
// layouts. The compact view uses one line per item. The detailed view
// prints each item's URL, params, art, info labels, properties, streams
// and context menu on separate lines. Host label markup is removed,
// $LOCALIZE references are expanded and "_json_" query params are decoded.
package display

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dshills/addondev/internal/kodi"
	"golang.org/x/term"
)

// MinWidth is the narrowest line width used for rules and cropping.
const MinWidth = 80

// Page is one screen: a title and the selectable items under it.
type Page struct {
	// Title is shown above the items, usually the current URL.
	Title string
	// AddonID scopes $ADDON lookups and is shown in the header.
	AddonID string
	// Category is the plugin category, if set.
	Category string
	Items    []*kodi.ListItem
}

// Presenter writes Pages to a writer.
type Presenter struct {
	w        io.Writer
	detailed bool
	crop     bool
	width    int
	localize Localizer

	header  lipgloss.Style
	subtle  lipgloss.Style
	folder  lipgloss.Style
	media   lipgloss.Style
	errText lipgloss.Style
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithDetailed selects the detailed layout.
func WithDetailed(on bool) Option {
	return func(p *Presenter) {
		p.detailed = on
	}
}

// WithCrop crops lines to the terminal width.
func WithCrop(on bool) Option {
	return func(p *Presenter) {
		p.crop = on
	}
}

// WithWidth fixes the line width instead of asking the terminal.
func WithWidth(n int) Option {
	return func(p *Presenter) {
		p.width = n
	}
}

// WithLocalizer sets the string lookup used for $LOCALIZE and $ADDON.
func WithLocalizer(l Localizer) Option {
	return func(p *Presenter) {
		p.localize = l
	}
}

// New creates a Presenter writing to w. Colours are used only when w is
// a terminal.
func New(w io.Writer, opts ...Option) *Presenter {
	r := lipgloss.NewRenderer(w)
	p := &Presenter{
		w:       w,
		crop:    true,
		header:  r.NewStyle().Bold(true),
		subtle:  r.NewStyle().Foreground(lipgloss.Color("#666666")),
		folder:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#88C0D0")),
		media:   r.NewStyle().Foreground(lipgloss.Color("#A3BE8C")),
		errText: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Width returns the line width: the fixed width, else the terminal width,
// never below MinWidth.
func (p *Presenter) Width() int {
	w := p.width
	if w == 0 {
		if f, ok := p.w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
				w = cols
			}
		}
	}
	return max(w, MinWidth)
}

// Show prints a page.
func (p *Presenter) Show(page Page) error {
	width := p.Width()
	rule := strings.Repeat("=", width)

	title := page.Title
	if page.Category != "" {
		title = Label(page.Category, p.localizer(page.AddonID)) + "  " + title
	}

	var b strings.Builder
	b.WriteString(p.subtle.Render(rule) + "\n")
	b.WriteString(p.header.Render(p.line(title, width)) + "\n")
	b.WriteString(p.subtle.Render(strings.Repeat("-", width)) + "\n")

	if p.detailed {
		p.detailedView(&b, page, width)
	} else {
		p.compactView(&b, page, width)
	}
	b.WriteString(p.subtle.Render(rule) + "\n")

	_, err := io.WriteString(p.w, b.String())
	return err
}

// Message prints a line of plain text.
func (p *Presenter) Message(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Error prints an error line.
func (p *Presenter) Error(msg string, err error) {
	fmt.Fprintln(p.w, p.errText.Render(msg)+": "+err.Error())
}

func (p *Presenter) line(s string, width int) string {
	if p.crop {
		return Crop(s, width)
	}
	return s
}

func (p *Presenter) localizer(addonID string) Localizer {
	if p.localize == nil {
		return nil
	}
	return func(id string, n int) (string, bool) {
		if id == "" {
			id = addonID
		}
		return p.localize(id, n)
	}
}

func (p *Presenter) compactView(b *strings.Builder, page Page, width int) {
	loc := p.localizer(page.AddonID)
	labels := make([]string, len(page.Items))
	labelWidth := 16
	for i, item := range page.Items {
		labels[i] = Label(item.Label, loc)
		if l := len([]rune(labels[i])); l > labelWidth {
			labelWidth = l
		}
	}
	numWidth := len(strconv.Itoa(len(page.Items)))

	for i, item := range page.Items {
		mark := "-"
		style := p.media
		if item.Folder {
			mark, style = "+", p.folder
		}
		head := fmt.Sprintf("%*d. %s %-*s", numWidth, i, mark, labelWidth, labels[i])

		var parts []string
		for _, f := range fields(item, loc) {
			parts = append(parts, f.compact())
		}
		line := head
		if len(parts) > 0 {
			line += " Listitem(" + strings.Join(parts, ", ") + ")"
		}
		b.WriteString(style.Render(p.line(line, width)) + "\n")
	}
}

func (p *Presenter) detailedView(b *strings.Builder, page Page, width int) {
	loc := p.localizer(page.AddonID)
	for i, item := range page.Items {
		style := p.media
		if item.Folder {
			style = p.folder
		}
		b.WriteString(style.Render(p.line(fmt.Sprintf("%d. %s", i, Label(item.Label, loc)), width)) + "\n")
		b.WriteString(p.subtle.Render(strings.Repeat("#", width)) + "\n")

		fs := fields(item, loc)
		pad := 16
		for _, f := range fs {
			pad = max(pad, len(f.name)+2)
			for _, kv := range f.pairs {
				pad = max(pad, len(kv[0])+1)
			}
		}
		for _, f := range fs {
			if f.pairs == nil {
				b.WriteString(p.line(fmt.Sprintf("%-*s%s", pad, title(f.name), f.value), width) + "\n")
				continue
			}
			b.WriteString(title(f.name) + ":\n")
			for _, kv := range f.pairs {
				b.WriteString(p.line(fmt.Sprintf("- %-*s%s", pad, kv[0], kv[1]), width) + "\n")
			}
		}
		b.WriteString("\n")
	}
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// field is one displayed attribute: a scalar value or a sorted set of pairs.
type field struct {
	name  string
	value string
	pairs [][2]string
}

func (f field) compact() string {
	if f.pairs == nil {
		return f.name + "=" + f.value
	}
	kv := make([]string, len(f.pairs))
	for i, p := range f.pairs {
		kv[i] = p[0] + ": " + p[1]
	}
	return f.name + "={" + strings.Join(kv, ", ") + "}"
}

func sortedPairs[V any](m map[string]V, format func(V) string) [][2]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([][2]string, len(keys))
	for i, k := range keys {
		pairs[i] = [2]string{k, format(m[k])}
	}
	return pairs
}

// fields lists the displayed attributes of an item in a fixed order.
func fields(item *kodi.ListItem, loc Localizer) []field {
	var fs []field

	if item.Path != "" {
		if u, err := kodi.ParseURL(item.Path); err == nil {
			fs = append(fs, field{name: "url", pairs: [][2]string{{"id", u.AddonID}, {"path", u.Path}}})
			if len(u.Query) > 0 {
				params := make(map[string]string, len(u.Query))
				for k, v := range u.Query {
					params[k] = DecodeParam(k, v)
				}
				fs = append(fs, field{name: "params", pairs: sortedPairs(params, ident)})
			}
		} else {
			fs = append(fs, field{name: "path", value: item.Path})
		}
	}
	if item.Label2 != "" {
		fs = append(fs, field{name: "label2", value: Label(item.Label2, loc)})
	}
	if len(item.Art) > 0 {
		fs = append(fs, field{name: "art", pairs: sortedPairs(item.Art, ident)})
	}

	infoTypes := make([]string, 0, len(item.Info))
	for t := range item.Info {
		infoTypes = append(infoTypes, string(t))
	}
	sort.Strings(infoTypes)
	for _, t := range infoTypes {
		fs = append(fs, field{name: "info." + t, pairs: sortedPairs(item.Info[kodi.InfoType(t)], func(v any) string {
			if s, ok := v.(string); ok {
				return Label(s, loc)
			}
			return fmt.Sprint(v)
		})})
	}

	if len(item.Properties) > 0 {
		fs = append(fs, field{name: "properties", pairs: sortedPairs(item.Properties, ident)})
	}

	streamTypes := make([]string, 0, len(item.StreamInfo))
	for t := range item.StreamInfo {
		streamTypes = append(streamTypes, string(t))
	}
	sort.Strings(streamTypes)
	for _, t := range streamTypes {
		for i, s := range item.StreamInfo[kodi.StreamType(t)] {
			fs = append(fs, field{name: fmt.Sprintf("stream.%s.%d", t, i), pairs: sortedPairs(s, func(v any) string { return fmt.Sprint(v) })})
		}
	}

	if len(item.ContextMenu) > 0 {
		pairs := make([][2]string, len(item.ContextMenu))
		for i, e := range item.ContextMenu {
			pairs[i] = [2]string{Label(e.Label, loc), decodeCommand(e.Action)}
		}
		fs = append(fs, field{name: "context", pairs: pairs})
	}
	if item.MimeType != "" {
		fs = append(fs, field{name: "mimetype", value: item.MimeType})
	}
	if len(item.Subtitles) > 0 {
		fs = append(fs, field{name: "subtitles", value: strings.Join(item.Subtitles, ", ")})
	}
	return fs
}

func ident(s string) string { return s }

// decodeCommand decodes "_json_" params inside a builtin such as
// RunPlugin(plugin://...?_json_=...).
func decodeCommand(cmd string) string {
	open := strings.IndexByte(cmd, '(')
	if open < 0 || !strings.HasSuffix(cmd, ")") {
		return cmd
	}
	arg := cmd[open+1 : len(cmd)-1]
	q := strings.IndexByte(arg, '?')
	if q < 0 {
		return cmd
	}
	values, err := url.ParseQuery(arg[q+1:])
	if err != nil {
		return cmd
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+DecodeParam(k, values.Get(k)))
	}
	return cmd[:open+1] + arg[:q+1] + strings.Join(parts, "&") + ")"
}
