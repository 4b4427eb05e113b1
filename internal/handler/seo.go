package handler

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kyyril/portfolio/internal/content"
)

// staticPages are the site's fixed routes; "" is the home page.
var staticPages = []string{"", "/projects", "/blog", "/guestbook", "/chat"}

// projectSlugs are the project detail pages under /projects/.
var projectSlugs = []string{
	"sobat-takwa",
	"cihuy-movie",
	"design-to-code",
	"we-share",
	"toyota-labuhanbatu",
	"gemini-fine-tuning-studio",
	"instacook",
	"saas-notesapp",
	"hadith-api",
	"aku-mahasigma",
}

const robotsTemplate = `User-agent: *
Allow: /

# Disallow admin and API routes
Disallow: /api/
Disallow: /admin/
Disallow: /_astro/
Disallow: /dist/

# Allow important files
Allow: /api/sitemap.xml
Allow: /favicon.svg
Allow: /global.css

Crawl-delay: 1

Sitemap: %s/sitemap.xml

User-agent: Googlebot
Allow: /

User-agent: Bingbot
Allow: /

User-agent: Slurp
Allow: /

# AI training crawlers
User-agent: GPTBot
Disallow: /

User-agent: ChatGPT-User
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: anthropic-ai
Disallow: /

User-agent: Claude-Web
Disallow: /
`

// SEOHandler serves robots.txt and sitemap.xml.
type SEOHandler struct {
	siteURL string
	posts   *content.Collection
	now     func() time.Time
	logger  *slog.Logger
}

// NewSEOHandler creates an SEOHandler. siteURL is the public origin
// without a trailing slash, e.g. "https://example.dev".
func NewSEOHandler(siteURL string, posts *content.Collection, logger *slog.Logger) *SEOHandler {
	return &SEOHandler{
		siteURL: strings.TrimRight(siteURL, "/"),
		posts:   posts,
		now:     time.Now,
		logger:  logger,
	}
}

// HTTP: GET /robots.txt
func (h *SEOHandler) HandleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	fmt.Fprintf(w, robotsTemplate, h.siteURL)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// HandleSitemap lists the static pages, every blog post, and every project.
//
// HTTP: GET /sitemap.xml
func (h *SEOHandler) HandleSitemap(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC().Format(time.RFC3339)

	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, page := range staticPages {
		u := sitemapURL{Loc: h.siteURL + page, LastMod: now, ChangeFreq: "monthly", Priority: "0.8"}
		if page == "" {
			u.ChangeFreq, u.Priority = "weekly", "1.0"
		}
		set.URLs = append(set.URLs, u)
	}
	for _, post := range h.posts.List("") {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.siteURL + "/blog/" + post.Slug,
			LastMod:    post.PublishedAt.UTC().Format(time.RFC3339),
			ChangeFreq: "monthly",
			Priority:   "0.7",
		})
	}
	for _, slug := range projectSlugs {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.siteURL + "/projects/" + slug,
			LastMod:    now,
			ChangeFreq: "monthly",
			Priority:   "0.6",
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("handler: encoding sitemap: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}
