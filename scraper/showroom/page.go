package showroom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"showroom-kpi/models"
)

const (
	tableSelector = "table.table-striped"
	cellSelector  = "td.delim"
)

// Page is the parsed content of one report page.
type Page struct {
	HasTable bool
	Records  []models.RawRecord
	Skipped  int // rows that were not data rows
}

// ParsePage extracts data rows from a report page body.
func ParsePage(body []byte, mode models.Mode) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tbody := doc.Find(tableSelector).First().Find("tbody")
	if tbody.Length() == 0 {
		return &Page{}, nil
	}

	page := &Page{HasTable: true}
	tbody.First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(cellSelector)
		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			texts = append(texts, cellText(td))
		})

		rec, ok := ExtractRow(texts, mode)
		if !ok {
			page.Skipped++
			return
		}
		page.Records = append(page.Records, rec)
	})
	return page, nil
}

// cellText joins the cell's non-blank text nodes, each trimmed, with a
// single space, so "<br>"-separated date and duration stay apart.
func cellText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
