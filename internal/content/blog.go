// Package content loads the blog collection: markdown files with a YAML
// front matter block, read once at startup.
//
// A post file looks like:
//
//	---
//	title: Building a guestbook
//	publishedAt: 2024-03-01
//	readTime: 5 min read
//	tags: [go, sqlite]
//	excerpt: Notes from rewriting the guestbook.
//	---
//	Markdown body...
//
// The slug is the file name without its extension.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Post is one blog article.
type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	ReadTime    string    `json:"readTime"`
	Tags        []string  `json:"tags"`
	Excerpt     string    `json:"excerpt"`
	Body        string    `json:"body,omitempty"`
}

type frontMatter struct {
	Title       string   `yaml:"title"`
	PublishedAt string   `yaml:"publishedAt"`
	ReadTime    string   `yaml:"readTime"`
	Tags        []string `yaml:"tags"`
	Excerpt     string   `yaml:"excerpt"`
}

var (
	errNoFrontMatter   = errors.New("missing front matter")
	errUnterminated    = errors.New("front matter is not terminated")
	publishedAtLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02 15:04:05"}
)

// Collection is an immutable, sorted set of posts.
type Collection struct {
	posts  []Post // newest first
	bySlug map[string]int
}

// Load reads every .md/.mdx file directly under dir. A missing directory
// gives an empty collection so the server can start without content.
func Load(dir string, logger *slog.Logger) (*Collection, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("blog content directory not found, serving an empty collection", slog.String("dir", dir))
		return newCollection(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("content: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content: %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir), logger)
}

// LoadFS is Load over an arbitrary filesystem. Files whose front matter
// is missing or invalid are skipped with a warning.
func LoadFS(fsys fs.FS, logger *slog.Logger) (*Collection, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("content: listing posts: %w", err)
	}

	var posts []Post
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".md" && ext != ".mdx") {
			continue
		}

		raw, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("content: reading %s: %w", e.Name(), err)
		}

		post, err := parsePost(strings.TrimSuffix(e.Name(), ext), raw)
		if err != nil {
			logger.Warn("skipping blog post",
				slog.String("file", e.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		posts = append(posts, post)
	}

	logger.Info("blog content loaded", slog.Int("posts", len(posts)))
	return newCollection(posts), nil
}

func newCollection(posts []Post) *Collection {
	slices.SortFunc(posts, func(a, b Post) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Slug, b.Slug)
	})

	c := &Collection{posts: posts, bySlug: make(map[string]int, len(posts))}
	for i, p := range posts {
		c.bySlug[p.Slug] = i
	}
	return c
}

func parsePost(slug string, raw []byte) (Post, error) {
	head, body, err := splitFrontMatter(raw)
	if err != nil {
		return Post{}, err
	}

	var fm frontMatter
	if err := yaml.Unmarshal(head, &fm); err != nil {
		return Post{}, fmt.Errorf("parsing front matter: %w", err)
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", fm.Title},
		{"publishedAt", fm.PublishedAt},
		{"readTime", fm.ReadTime},
		{"excerpt", fm.Excerpt},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Post{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	published, err := parseDate(fm.PublishedAt)
	if err != nil {
		return Post{}, err
	}

	tags := fm.Tags
	if tags == nil {
		tags = []string{}
	}

	return Post{
		Slug:        slug,
		Title:       fm.Title,
		PublishedAt: published,
		ReadTime:    fm.ReadTime,
		Tags:        tags,
		Excerpt:     fm.Excerpt,
		Body:        string(body),
	}, nil
}

// splitFrontMatter separates the block between the leading "---" lines
// from the body.
func splitFrontMatter(raw []byte) (head, body []byte, err error) {
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))
	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))

	rest, ok := bytes.CutPrefix(raw, []byte("---\n"))
	if !ok {
		return nil, nil, errNoFrontMatter
	}

	// The closing delimiter may be the last line with no trailing newline.
	if bytes.HasPrefix(rest, []byte("---")) {
		return nil, bytes.TrimSpace(bytes.TrimPrefix(rest, []byte("---"))), nil
	}
	head, body, ok = bytes.Cut(rest, []byte("\n---"))
	if !ok {
		return nil, nil, errUnterminated
	}
	// Drop the remainder of the delimiter line.
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return head, bytes.TrimSpace(body), nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("publishedAt %q is not a date", s)
}

// List returns post summaries, newest first, without bodies. A non-empty
// tag keeps only posts carrying it (case-insensitive).
func (c *Collection) List(tag string) []Post {
	out := make([]Post, 0, len(c.posts))
	for _, p := range c.posts {
		if tag != "" && !slices.ContainsFunc(p.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			continue
		}
		p.Body = ""
		out = append(out, p)
	}
	return out
}

// Get returns the full post for slug.
func (c *Collection) Get(slug string) (Post, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Post{}, false
	}
	return c.posts[i], true
}

// Len is the number of loaded posts.
func (c *Collection) Len() int { return len(c.posts) }
