package edgar

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// sectionHeading matches the filing items worth excerpting: risk factors
// (1A), management discussion (7 in 10-Ks, 2 in 10-Qs) and business (1).
var sectionHeading = regexp.MustCompile(`(?i)^item\s+(1A|1|2|7)[.:\s]`)

// paragraphsPerSection bounds how much of each section is kept.
const paragraphsPerSection = 12

// ExtractSections pulls the narrative sections out of a filing document and
// returns them as markdown. Filing HTML is noisy (inline XBRL, layout
// tables, page artifacts), so this works on block text rather than
// structure: find item headings, keep the following paragraphs.
func ExtractSections(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse filing HTML: %w", err)
	}

	doc.Find("script, style, table").Remove()

	type block struct {
		heading bool
		title   string
		html    string
	}

	var blocks []block
	doc.Find("p, div, span").Each(func(_ int, sel *goquery.Selection) {
		// Leaf blocks only; container divs repeat their children's text
		if sel.Children().Filter("p, div").Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		outer, err := goquery.OuterHtml(sel)
		if err != nil {
			return
		}
		blocks = append(blocks, block{
			heading: sectionHeading.MatchString(text),
			title:   text,
			html:    outer,
		})
	})

	converter := md.NewConverter("", true, nil)

	var sections []string
	for i, b := range blocks {
		if !b.heading {
			continue
		}

		var buf strings.Builder
		buf.WriteString("## " + b.title + "\n\n")

		kept := 0
		for j := i + 1; j < len(blocks) && kept < paragraphsPerSection; j++ {
			if blocks[j].heading {
				break
			}
			markdown, err := converter.ConvertString(blocks[j].html)
			if err != nil {
				continue
			}
			markdown = strings.TrimSpace(markdown)
			if markdown == "" {
				continue
			}
			buf.WriteString(markdown + "\n\n")
			kept++
		}

		if kept > 0 {
			sections = append(sections, buf.String())
		}
	}

	if len(sections) == 0 {
		return "", fmt.Errorf("no extractable sections found")
	}

	return strings.TrimSpace(strings.Join(sections, "\n")), nil
}
