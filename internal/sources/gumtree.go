package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/config"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/fetch"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/logger"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/match"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/models"
	"github.com/BarnardF/Motorcycle-listing-web-scraper/internal/search"
)

const gumtreeHost = "https://www.gumtree.co.za"

// Gumtree scrapes the Gumtree motorcycle category search page. Results come
// from the "related items" markup on the category page; each ad carries its
// id in a data attribute. Gumtree's own search is loose, so every ad is
// re-checked against the term with the relevance scorer before it becomes a
// candidate.
type Gumtree struct {
	cfg    config.GumtreeConfig
	client *fetch.Client
	scorer *match.Scorer
	log    *logger.Logger
}

func NewGumtree(cfg config.GumtreeConfig, client *fetch.Client, scorer *match.Scorer, log *logger.Logger) *Gumtree {
	return &Gumtree{
		cfg:    cfg,
		client: client,
		scorer: scorer,
		log:    log.With("source", models.SourceGumtree),
	}
}

func (g *Gumtree) Source() models.Source { return models.SourceGumtree }

// Exhaustive is true: one search covers everything Gumtree currently lists
// for the term, so stored listings absent from a pass can be aged out.
func (g *Gumtree) Exhaustive() bool { return true }

// Fetch searches Gumtree for one term and returns the relevant candidates.
func (g *Gumtree) Fetch(ctx context.Context, term string) ([]models.Candidate, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, search.ErrEmptySearchTerm
	}

	pageURL := g.cfg.BaseURL + "?q=" + url.QueryEscape(trimmed)
	g.log.Debug("searching", "term", trimmed, "url", pageURL)

	body, err := g.client.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching gumtree results: %w", err)
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing gumtree results: %w", err)
	}

	candidates := g.parseResults(root, trimmed)
	if len(candidates) == 0 {
		g.log.Debug("no relevant ads found", "term", trimmed)
	} else {
		g.log.Info("search complete", "term", trimmed, "candidates", len(candidates))
	}
	return candidates, nil
}

// parseResults walks the page for related-item ads and keeps the complete,
// relevant ones. Ads repeated on the page are kept once.
func (g *Gumtree) parseResults(root *html.Node, term string) []models.Candidate {
	var candidates []models.Candidate
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isElement(n, "span") && hasClass(n, "related-item") {
			if c, ok := g.parseAd(n, term); ok && !seen[c.RawID] {
				seen[c.RawID] = true
				candidates = append(candidates, c)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return candidates
}

// parseAd extracts one ad. Ads missing an id, title, price or link are
// dropped quietly; titles below the relevance threshold are dropped with a
// debug line so threshold tuning has something to look at.
func (g *Gumtree) parseAd(ad *html.Node, term string) (models.Candidate, bool) {
	adID := attrValue(ad, "data-adid")

	var title, href string
	if titleLink := findElementWithClass(ad, "a", "related-ad-title"); titleLink != nil {
		href = attrValue(titleLink, "href")
		if span := findFirstElement(titleLink, "span"); span != nil {
			title = collapseText(span)
		}
	}

	price := collapseText(findElementWithClass(ad, "span", "ad-price"))

	if adID == "" || title == "" || price == "" || href == "" {
		return models.Candidate{}, false
	}

	if !g.scorer.IsMatch(title, term, g.cfg.Threshold) {
		g.log.Debug("ad below relevance threshold", "title", title, "term", term)
		return models.Candidate{}, false
	}

	if !strings.HasPrefix(href, "http") {
		href = gumtreeHost + href
	}

	return models.Candidate{
		Source:     models.SourceGumtree,
		RawID:      adID,
		Title:      title,
		Price:      price,
		URL:        href,
		SearchTerm: term,
	}, true
}

func isElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
}

// hasClass reports whether the node's class attribute contains the class as
// a whole token.
func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attrValue(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

func findFirstElement(node *html.Node, tag string) *html.Node {
	if isElement(node, tag) {
		return node
	}
	if node == nil {
		return nil
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirstElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func findElementWithClass(node *html.Node, tag, class string) *html.Node {
	if isElement(node, tag) && hasClass(node, class) {
		return node
	}
	if node == nil {
		return nil
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElementWithClass(child, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// collapseText joins all descendant text into one whitespace-collapsed
// string. Markup splits titles and prices across nested nodes.
func collapseText(node *html.Node) string {
	if node == nil {
		return ""
	}

	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
			builder.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)

	return strings.Join(strings.Fields(builder.String()), " ")
}
