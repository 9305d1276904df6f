package importer

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// ParseHTML reads a Netscape bookmark file (the export format of every
// major browser). Each anchor becomes an item whose category is the <h3>
// heading of the folder holding it; top-level anchors have no category.
func ParseHTML(r io.Reader) ([]domain.ImportItem, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid HTML import: %v", domain.ErrFormat, err)
	}

	var items []domain.ImportItem
	walk(doc, "", &items)
	return items, nil
}

// walk visits n in document order. folder is the name of the innermost
// <dl> group containing n.
func walk(n *html.Node, folder string, items *[]domain.ImportItem) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.A:
			*items = append(*items, domain.ImportItem{
				Title:    strings.TrimSpace(textOf(c)),
				URL:      attr(c, "href"),
				Category: folder,
			})
		case atom.Dl:
			name := folder
			if h := headingBefore(c); h != "" {
				name = h
			}
			walk(c, name, items)
		default:
			walk(c, folder, items)
		}
	}
}

// headingBefore returns the text of the <h3> preceding dl among its
// siblings, stopping at the previous folder or anchor.
func headingBefore(dl *html.Node) string {
	for s := dl.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type != html.ElementNode {
			continue
		}
		switch s.DataAtom {
		case atom.H3:
			return strings.TrimSpace(textOf(s))
		case atom.Dl, atom.A, atom.Dt:
			return ""
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
