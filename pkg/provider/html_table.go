package provider

import (
	"strings"

	"golang.org/x/net/html"
	xtext "golang.org/x/text/width"
)

// tableCell mirrors the {text, link} shape original_source's
// ShortagesTableParser builds per cell.
type tableCell struct {
	text string
	link string
}

// parseHTMLTable walks the document looking for the first <table> whose
// class or id mentions one of tableHintWords (falling back to the first
// non-empty table when none does), then returns each row outside <thead>
// that has at least two cells as a slice of cells — the Go analogue of
// original_source's ShortagesTableParser built on Python's HTMLParser,
// here built on golang.org/x/net/html's tokenizer/tree walker.
func parseHTMLTable(body []byte, tableHintWords []string) ([][]tableCell, error) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	var table, firstTable *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if table != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "table" {
			class := attr(n, "class")
			id := attr(n, "id")
			haystack := strings.ToLower(class + " " + id)
			for _, hint := range tableHintWords {
				if strings.Contains(haystack, hint) {
					table = n
					return
				}
			}
			if firstTable == nil && n.FirstChild != nil {
				// no table matched a hint yet; keep the first table seen
				// as a last resort and go on looking for one that does.
				firstTable = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if table == nil {
		table = firstTable
	}
	if table == nil {
		return nil, nil
	}

	var rows [][]tableCell
	var walkRows func(*html.Node)
	walkRows = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "thead" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "tr" {
			var row []tableCell
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					row = append(row, cellOf(c))
				}
			}
			if len(row) >= 2 {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkRows(c)
		}
	}
	walkRows(table)
	return rows, nil
}

func cellOf(n *html.Node) tableCell {
	var textBuf strings.Builder
	var link string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			textBuf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "a" && link == "" {
			if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "#") {
				link = href
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	// normalize odd unicode widths/whitespace picked up from scraped
	// table cells before downstream status/title normalization.
	text := xtext.Narrow.String(strings.TrimSpace(textBuf.String()))
	return tableCell{text: text, link: link}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
