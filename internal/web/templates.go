package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/playlist"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template with the given data.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}

	// Execute the "base" template which includes the page content
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template (without base layout) with the given data.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.Execute(w, data)
}

// load parses all templates from the filesystem.
func (t *Templates) load(templatesFS fs.FS) error {
	// Load base layout
	layoutPattern := "layouts/*.html"
	layouts, err := fs.Glob(templatesFS, layoutPattern)
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}

	// Load partials
	partialPattern := "partials/*.html"
	partials, err := fs.Glob(templatesFS, partialPattern)
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}

	// Load each page template with layouts and partials
	pagePattern := "pages/*.html"
	pages, err := fs.Glob(templatesFS, pagePattern)
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}

	// Common files to include with every page
	commonFiles := append(layouts, partials...)

	for _, page := range pages {
		// Create a new template for each page
		name := filepath.Base(page)
		name = name[:len(name)-len(".html")] // Remove .html extension

		files := append([]string{page}, commonFiles...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}

		// Execute "base" layout if it exists, otherwise the page itself
		t.templates[name] = tmpl
	}

	// Load partials as standalone templates for HTMX fragments
	for _, partial := range partials {
		name := filepath.Base(partial)
		name = name[:len(name)-len(".html")] // Remove .html extension

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// formatCount abbreviates follower counts: 950, 12.3K, 4.1M.
		"formatCount": func(n int) string {
			switch {
			case n >= 1_000_000:
				return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
			case n >= 1_000:
				return fmt.Sprintf("%.1fK", float64(n)/1_000)
			default:
				return fmt.Sprintf("%d", n)
			}
		},
	}
}

// Result status values, used as CSS modifiers.
const (
	StatusSuccess = "success"
	StatusInfo    = "info"
	StatusWarning = "warning"
)

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	CurrentPath string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Moods               []MoodData
	CameraAvailable     bool
	ClassifierAvailable bool
	VoiceAvailable      bool
	Cloud               bool
	Result              *ResultData
}

// MoodData describes one mood for buttons and results.
type MoodData struct {
	Name    string
	Slug    string
	Emoji   string
	Message string
	Color   string // CSS hex colour derived from the mood hue
}

// PlaylistData is a playlist link with optional metadata.
type PlaylistData struct {
	URL         string
	Name        string
	Description string
	ImageURL    string
	Followers   int
}

// ResultData is the outcome of a selection or detection. Either Mood is set
// or Info explains why no mood was produced.
type ResultData struct {
	Status     string
	Heading    string
	Mood       *MoodData
	Playlist   *PlaylistData
	Transcript string
	Note       string
	Info       string
}

func newMoodData(m mood.Mood) *MoodData {
	return &MoodData{
		Name:    m.String(),
		Slug:    m.Slug(),
		Emoji:   m.Emoji(),
		Message: m.Message(),
		Color:   colorful.Hsv(m.Hue(), 0.55, 0.85).Hex(),
	}
}

func allMoodData() []MoodData {
	moods := mood.Moods()
	out := make([]MoodData, len(moods))
	for i, m := range moods {
		out[i] = *newMoodData(m)
	}
	return out
}

func newPlaylistData(e playlist.Entry) *PlaylistData {
	p := &PlaylistData{URL: e.URL}
	if e.Info != nil {
		p.Name = e.Info.Name
		p.Description = e.Info.Description
		p.ImageURL = e.Info.ImageURL
		p.Followers = e.Info.Followers
	}
	return p
}
