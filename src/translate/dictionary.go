package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"floating-dictionary/src/logutil"
	"floating-dictionary/src/ocr"
)

const examplesHeader = "ตัวอย่างประโยค"

// Dictionaries lists the Longdo result tables that are scraped, in display
// order.
var Dictionaries = []string{
	"NECTEC Lexitron Dictionary EN-TH",
	"Nontri Dictionary",
	"Hope Dictionary",
}

var (
	parenPOS  = regexp.MustCompile(`^\s*\((.*?)\)\s*(.*)`)
	prefixPOS = regexp.MustCompile(`(?i)^(pron|adj|det|n|v|adv|int|conj)(?:\.\s*|\s+)(.*)`)
)

// Sense is one row of a dictionary result table.
type Sense struct {
	Word         string
	PartOfSpeech string
	Meaning      string
	Dictionary   string
}

// Example is a source/target sentence pair.
type Example struct {
	Source string
	Target string
}

// DictionaryEntry is the structured lookup result for one headword.
type DictionaryEntry struct {
	Headword string
	Senses   []Sense
	Examples []Example
}

// Definitions renders the senses as ordered display lines.
func (e *DictionaryEntry) Definitions() []string {
	if e == nil {
		return nil
	}
	lines := make([]string, 0, len(e.Senses))
	for _, s := range e.Senses {
		lines = append(lines, fmt.Sprintf("%s (%s): %s", s.Word, s.PartOfSpeech, s.Meaning))
	}
	return lines
}

// ExampleLines renders the example pairs as ordered display lines.
func (e *DictionaryEntry) ExampleLines() []string {
	if e == nil {
		return nil
	}
	lines := make([]string, 0, len(e.Examples))
	for _, ex := range e.Examples {
		lines = append(lines, ex.Source+" → "+ex.Target)
	}
	return lines
}

// Empty reports whether the lookup found nothing worth showing.
func (e *DictionaryEntry) Empty() bool {
	return e == nil || (len(e.Senses) == 0 && len(e.Examples) == 0)
}

// WantsDictionary reports whether a dictionary lookup applies: a single
// English-shaped word translated to Thai.
func WantsDictionary(text, target string) bool {
	if !ocr.IsSingleWord(text) || !ocr.IsEnglishWord(strings.TrimSpace(text)) {
		return false
	}
	tag, err := language.Parse(target)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "th"
}

// DictionaryClient scrapes the Longdo mobile page.
type DictionaryClient struct {
	baseURL string
	http    *http.Client
}

func NewDictionaryClient(baseURL string, timeout time.Duration, hc *http.Client) *DictionaryClient {
	if hc == nil {
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &DictionaryClient{baseURL: baseURL, http: hc}
}

// Lookup fetches and parses the entry for word. Any failure is reported as
// ErrDictionaryUnavailable.
func (c *DictionaryClient) Lookup(ctx context.Context, word string) (*DictionaryEntry, error) {
	word = strings.TrimSpace(word)
	logger := logutil.Component("dictionary")

	reqURL := c.baseURL + "?search=" + url.QueryEscape(word)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, newError("lookup", ErrDictionaryUnavailable, "build request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError("lookup", ErrDictionaryUnavailable, "%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newError("lookup", ErrDictionaryUnavailable, "status %d", resp.StatusCode)
	}

	entry, err := ParseDictionaryHTML(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, newError("lookup", ErrDictionaryUnavailable, "parse: %v", err)
	}
	entry.Headword = word
	logger.Debug().
		Str("word", logutil.SanitizeForLog(word)).
		Int("senses", len(entry.Senses)).
		Int("examples", len(entry.Examples)).
		Msg("dictionary lookup finished")
	return entry, nil
}

// ParseDictionaryHTML extracts senses and examples from a Longdo page.
func ParseDictionaryHTML(r io.Reader) (*DictionaryEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	entry := &DictionaryEntry{}

	for _, dict := range Dictionaries {
		doc.Find("b").Each(func(_ int, b *goquery.Selection) {
			if !strings.Contains(b.Text(), dict) {
				return
			}
			table := b.NextAllFiltered("table.result-table").First()
			table.Find("tr").Each(func(_ int, row *goquery.Selection) {
				cells := row.Find("td")
				if cells.Length() != 2 {
					return
				}
				word := strings.TrimSpace(cells.Eq(0).Text())
				def := strings.TrimSpace(cells.Eq(1).Text())
				if word == "" || def == "" {
					return
				}
				pos, meaning := parseDefinition(def)
				entry.Senses = append(entry.Senses, Sense{
					Word:         word,
					PartOfSpeech: pos,
					Meaning:      meaning,
					Dictionary:   dict,
				})
			})
		})
	}

	doc.Find("b").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		if !strings.Contains(b.Text(), examplesHeader) {
			return true
		}
		table := b.NextAllFiltered("table.result-table").First()
		if table.Length() == 0 {
			return true
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			fonts := row.Find("font[color='black']")
			if fonts.Length() != 2 {
				return
			}
			src := strings.TrimSpace(fonts.Eq(0).Text())
			dst := strings.TrimSpace(fonts.Eq(1).Text())
			if src != "" && dst != "" {
				entry.Examples = append(entry.Examples, Example{Source: src, Target: dst})
			}
		})
		return false
	})

	return entry, nil
}

// parseDefinition splits "(n) meaning" or "(...) adj. meaning" into a part of
// speech and the remaining meaning. Without a leading parenthesis the part of
// speech is "N/A".
func parseDefinition(def string) (pos, meaning string) {
	m := parenPOS.FindStringSubmatch(def)
	if m == nil {
		return "N/A", def
	}
	pos = strings.TrimSpace(m[1])
	meaning = strings.TrimSpace(m[2])
	if p := prefixPOS.FindStringSubmatch(meaning); p != nil {
		return p[1], strings.TrimSpace(p[2])
	}
	return pos, meaning
}
