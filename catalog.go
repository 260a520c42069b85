/*
Copyright © 2019 the m2m authors.
This file is part of m2m.

m2m is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

m2m is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with m2m.  If not, see <http://www.gnu.org/licenses/>.
*/

package m2m

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ListFiles returns the targets of the links in the THREDDS catalog page
// at url whose text matches the regular expression tag, in the order in
// which they appear. An empty tag matches all links. The returned
// references are relative to the catalog; use DataURL to convert them
// to download URLs. A catalog without matching links gives an empty
// result and no error.
func (c *Client) ListFiles(ctx context.Context, url, tag string) ([]string, error) {
	pattern, err := regexp.Compile(tag)
	if err != nil {
		return nil, fmt.Errorf("m2m: invalid file pattern: %v", err)
	}
	b, err := c.get(ctx, url, false)
	if err != nil {
		return nil, fmt.Errorf("m2m: listing files: %w", err)
	}
	files, err := catalogLinks(b, pattern)
	if err != nil {
		return nil, fmt.Errorf("m2m: listing files in %s: %v", url, err)
	}
	return files, nil
}

// catalogLinks parses an HTML page and returns the href attributes of
// the anchor elements whose text matches pattern.
func catalogLinks(page []byte, pattern *regexp.Regexp) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	files := []string{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href, ok := attr(n, "href")
			if ok && pattern.MatchString(text(n)) {
				files = append(files, href)
			}
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(doc)
	return files, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// text returns the text content of n and its descendants.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
