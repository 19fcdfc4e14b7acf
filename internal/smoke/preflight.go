package smoke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// CountIDs parses an HTML document and counts elements per id attribute.
func CountIDs(r io.Reader) (map[string]int, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	counts := make(map[string]int)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" {
					counts[a.Val]++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return counts, nil
}

// Preflight fetches pageURL over plain HTTP and checks that each id occurs
// exactly once, without starting a browser.
func Preflight(ctx context.Context, client *http.Client, pageURL string, ids []string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	counts, err := CountIDs(resp.Body)
	if err != nil {
		return err
	}

	var problems []string
	for _, id := range ids {
		if n := counts[id]; n != 1 {
			problems = append(problems, fmt.Sprintf("%s=%d", id, n))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("ids not unique on %s: %s", pageURL, strings.Join(problems, ", "))
	}
	return nil
}
