package extractor

import (
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"LinkScanner/internal/domain"
)

// Mode selects how anchors are located in an answer body.
type Mode string

const (
	// ModeRegex matches the literal `<a href="http...` prefix.
	ModeRegex Mode = "regex"
	// ModeHTML parses the body and visits every a[href] element.
	ModeHTML Mode = "html"
)

const (
	DefaultExcludedDomain  = "stackoverflow.com"
	DefaultPermalinkFormat = "https://stackoverflow.com/a/%d"
)

// Options configures an Extractor.
type Options struct {
	Mode                  Mode
	ExcludedDomain        string
	PermalinkFormat       string
	CaseInsensitiveScheme bool
}

// Extractor turns one answer into (url, reference) pairs.
type Extractor struct {
	opts   Options
	anchor *regexp.Regexp
	href   *regexp.Regexp
	logger *slog.Logger
}

// New validates options and compiles the scheme patterns.
func New(opts Options, log *slog.Logger) (*Extractor, error) {
	if opts.Mode == "" {
		opts.Mode = ModeRegex
	}
	if opts.Mode != ModeRegex && opts.Mode != ModeHTML {
		return nil, fmt.Errorf("unknown extractor mode %q", opts.Mode)
	}
	if opts.PermalinkFormat == "" {
		opts.PermalinkFormat = DefaultPermalinkFormat
	}
	if !strings.Contains(opts.PermalinkFormat, "%d") {
		return nil, fmt.Errorf("permalink format %q has no %%d verb", opts.PermalinkFormat)
	}

	scheme := `https?`
	if opts.CaseInsensitiveScheme {
		scheme = `(?i:https?)`
	}

	return &Extractor{
		opts:   opts,
		anchor: regexp.MustCompile(`<a href="(` + scheme + `[^"]+)`),
		href:   regexp.MustCompile(`^` + scheme + `[^"]+`),
		logger: log,
	}, nil
}

// Extract yields one pair per distinct outbound URL in the record body.
// Duplicates within the record are collapsed, links to the excluded domain are
// dropped and URLs that fail to parse are kept so the checker can report them.
func (e *Extractor) Extract(rec domain.SourceRecord) iter.Seq[domain.KeyedReference] {
	return func(yield func(domain.KeyedReference) bool) {
		seen := make(map[string]struct{})
		for _, link := range e.links(rec.Body) {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}

			if e.excluded(link) {
				continue
			}

			ref := domain.AnswerReference{
				Score:         rec.Score,
				AnswerID:      rec.ID,
				QuestionTitle: rec.Title,
				AnswerURL:     fmt.Sprintf(e.opts.PermalinkFormat, rec.ID),
			}
			if !yield(domain.KeyedReference{URL: link, Reference: ref}) {
				return
			}
		}
	}
}

// Collect drains Extract into a slice.
func (e *Extractor) Collect(rec domain.SourceRecord) []domain.KeyedReference {
	var out []domain.KeyedReference
	for pair := range e.Extract(rec) {
		out = append(out, pair)
	}
	return out
}

func (e *Extractor) links(body string) []string {
	if e.opts.Mode == ModeHTML {
		links, err := e.htmlLinks(body)
		if err == nil {
			return links
		}
		e.debug("html parse failed, falling back to regex", "error", err)
	}

	matches := e.anchor.FindAllStringSubmatch(body, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, m[1])
	}
	return links
}

func (e *Extractor) htmlLinks(body string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if link := e.href.FindString(href); link != "" {
			links = append(links, link)
		}
	})
	return links, nil
}

func (e *Extractor) excluded(link string) bool {
	if e.opts.ExcludedDomain == "" {
		return false
	}

	host := ""
	if parsed, err := url.Parse(link); err == nil {
		host = parsed.Host
	} else {
		host = authority(link)
		if host == "" {
			e.debug("keep unparseable url", "url", link, "error", err)
			return false
		}
	}

	if strings.HasSuffix(host, e.opts.ExcludedDomain) {
		e.debug("skip excluded domain", "url", link)
		return true
	}
	return false
}

// authority pulls host[:port] out of a URL that url.Parse rejected, e.g. one
// with a bad percent-escape in its path.
func authority(link string) string {
	_, rest, ok := strings.Cut(link, "://")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	return rest
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
