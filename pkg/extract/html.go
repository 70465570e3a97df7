package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableExtractor reads the first HTML table of the fragment without a model.
// The task is ignored.
type TableExtractor struct{}

// Extract implements Extractor.
func (TableExtractor) Extract(ctx context.Context, html, _ string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := &Table{}
	first := doc.Find("table").First()
	if first.Length() == 0 {
		return table, nil
	}

	first.Find("th").Each(func(_ int, th *goquery.Selection) {
		table.Header = append(table.Header, cellText(th))
	})
	first.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, cellText(td))
		})
		if len(row) > 0 {
			table.Data = append(table.Data, row)
		}
	})
	return table, nil
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
