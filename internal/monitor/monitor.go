// Package monitor watches ticket pages for content changes. Each page is
// reduced to a state string: the normalized text of its ".date_info" block
// when there is one, otherwise an MD5 of the page text with scripts, ads
// and other volatile parts removed. A different state than last time counts
// as an update.
package monitor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/net/html"

	appLog "madcal/internal/log"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "madcal-monitor/1.0"
)

// noiseTags never carry visible content.
const noiseTags = "script, style, noscript, meta, iframe, link, svg"

// dynamicSelectors change on every load and are left out of the hash.
var dynamicSelectors = []string{
	".date_info", ".timestamp", "#ad", ".ads", ".cookie-banner", "#cookies", ".tracker",
}

// Page is one monitored URL.
type Page struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

// Status is the outcome of checking a page.
type Status string

const (
	StatusFirst     Status = "first"
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "error"
)

// Check is the result of one visit to a page.
type Check struct {
	Label       string    `json:"label"`
	URL         string    `json:"url"`
	Status      Status    `json:"status"`
	State       string    `json:"state,omitempty"`
	Previous    string    `json:"previous,omitempty"`
	ChangeCount int       `json:"change_count"`
	Diff        string    `json:"diff,omitempty"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

type pageState struct {
	state   string
	content string
	count   int
	last    Check
}

// Monitor remembers the last state of every page it has checked.
type Monitor struct {
	pages     []Page
	timeout   time.Duration
	userAgent string
	now       func() time.Time

	mu     sync.Mutex
	states map[string]*pageState
	order  []string
}

// New returns a Monitor for the given static pages. A zero timeout uses 10s.
func New(pages []Page, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Monitor{
		pages:     pages,
		timeout:   timeout,
		userAgent: defaultUserAgent,
		now:       time.Now,
		states:    make(map[string]*pageState),
	}
}

// SetClock overrides the time source (tests).
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// CheckAll visits the static pages plus extra, once per URL, in order.
// Unreachable pages are reported with StatusFailed and keep their previous
// state.
func (m *Monitor) CheckAll(ctx context.Context, extra ...Page) []Check {
	pages := dedupe(append(append([]Page(nil), m.pages...), extra...))
	checks := make([]Check, 0, len(pages))
	for _, p := range pages {
		if ctx.Err() != nil {
			break
		}
		checks = append(checks, m.Check(ctx, p))
	}

	changed := len(Changed(checks))
	appLog.Info("monitor check completed", "pages", len(checks), "changed", changed)
	return checks
}

// Check visits a single page and records its new state.
func (m *Monitor) Check(ctx context.Context, p Page) Check {
	snap, err := fetch(ctx, p.URL, m.timeout, m.userAgent)

	m.mu.Lock()
	defer m.mu.Unlock()

	ps, seen := m.states[p.URL]
	if !seen {
		ps = &pageState{}
		m.states[p.URL] = ps
		m.order = append(m.order, p.URL)
	}

	c := Check{Label: p.Label, URL: p.URL, At: m.now(), Previous: ps.state, ChangeCount: ps.count}
	switch {
	case err != nil:
		c.Status = StatusFailed
		c.State = ps.state
		c.Error = err.Error()
		appLog.Warn("monitor: page fetch failed", "url", p.URL, "err", err)
	case !seen || ps.state == "":
		c.Status = StatusFirst
		c.State = snap.state
	case ps.state != snap.state:
		c.Status = StatusChanged
		c.State = snap.state
		c.ChangeCount = ps.count + 1
		c.Diff = unifiedDiff(ps.content, snap.content)
		appLog.Info("monitor: page changed", "label", p.Label, "url", p.URL, "count", c.ChangeCount)
	default:
		c.Status = StatusUnchanged
		c.State = snap.state
	}

	if err == nil {
		ps.state = snap.state
		ps.content = snap.content
	}
	ps.count = c.ChangeCount
	ps.last = c
	return c
}

// Checks returns the latest check of every page seen so far, in the order
// they were first checked.
func (m *Monitor) Checks() []Check {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Check, 0, len(m.order))
	for _, u := range m.order {
		out = append(out, m.states[u].last)
	}
	return out
}

// Changed filters checks down to pages that were updated.
func Changed(checks []Check) []Check {
	var out []Check
	for _, c := range checks {
		if c.Status == StatusChanged {
			out = append(out, c)
		}
	}
	return out
}

type snapshot struct {
	state   string
	content string
}

func fetch(ctx context.Context, url string, timeout time.Duration, userAgent string) (snapshot, error) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)

	var (
		snap   snapshot
		parsed bool
		raw    []byte
	)
	c.OnResponse(func(r *colly.Response) {
		raw = r.Body
	})
	c.OnHTML("html", func(e *colly.HTMLElement) {
		snap = pageSnapshot(e.DOM)
		parsed = true
	})

	if err := c.Visit(url); err != nil {
		return snapshot{}, fmt.Errorf("visit %s: %w", url, err)
	}
	if !parsed {
		text := collapse(string(raw))
		snap = snapshot{state: hashText(text), content: text}
	}
	return snap, nil
}

// pageSnapshot reduces a parsed page to its state and its readable text.
func pageSnapshot(root *goquery.Selection) snapshot {
	page := root.Clone()
	page.Find(noiseTags).Remove()
	content := strings.Join(texts(page), "\n")

	if info := page.Find(".date_info").First(); info.Length() > 0 {
		if state := strings.ToLower(strings.Join(texts(info), " ")); state != "" {
			return snapshot{state: state, content: content}
		}
	}

	for _, sel := range dynamicSelectors {
		page.Find(sel).Remove()
	}
	return snapshot{state: hashText(strings.Join(texts(page), " ")), content: content}
}

// texts returns the whitespace-collapsed text nodes under sel, skipping
// comments and empty nodes.
func texts(sel *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := collapse(n.Data); t != "" {
				out = append(out, t)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hashText(s string) string {
	sum := md5.Sum([]byte(collapse(s)))
	return hex.EncodeToString(sum[:])
}

func unifiedDiff(before, after string) string {
	if before == "" || before == after {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "anterior",
		ToFile:   "actual",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}

func dedupe(pages []Page) []Page {
	seen := make(map[string]struct{}, len(pages))
	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		p.URL = strings.TrimSpace(p.URL)
		if p.URL == "" {
			continue
		}
		if _, ok := seen[p.URL]; ok {
			continue
		}
		seen[p.URL] = struct{}{}
		if p.Label == "" {
			p.Label = p.URL
		}
		out = append(out, p)
	}
	return out
}
