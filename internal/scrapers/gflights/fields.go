package gflights

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flightscraper-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way of finding a field inside a result block. Extract
// returns false when it is not confident it found the field.
type Strategy struct {
	Name    string
	Extract func(block *goquery.Selection) (string, bool)
}

// Chain is an ordered list of strategies, the first one that succeeds wins.
type Chain []Strategy

// Run returns the value found by the first successful strategy and that
// strategy's name.
func (c Chain) Run(block *goquery.Selection) (value string, strategy string, ok bool) {
	for _, s := range c {
		value, ok = s.Extract(block)
		if ok {
			return value, s.Name, true
		}
	}
	return "", "", false
}

// Locators holds the chain for every field of a FlightRecord.
type Locators struct {
	Airline   Chain
	Departure Chain
	Arrival   Chain
	Duration  Chain
	Stops     Chain
	Price     Chain
}

const timeExpr = `(?:[01]?\d|2[0-3]):[0-5]\d(?: ?(?:[AaPp][Mm]\b|[AaPp]\.[Mm]\.))?`

var (
	timeRegex     = regexp.MustCompile(`\b` + timeExpr)
	durationRegex = regexp.MustCompile(`(?i)\b(?:\d+ ?(?:hours?|hrs?|h)\b(?: ?\d+ ?(?:minutes?|mins?|m)\b)?|\d+ ?(?:minutes?|mins?)\b)`)
	priceRegex    = regexp.MustCompile(`\$ ?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{2})?`)
	stopsRegex    = regexp.MustCompile(`(?i)\b(?:non-?stop|(\d+) stops?)\b`)

	departLabelRegex = regexp.MustCompile(`(?i)\bdepart\w*\b[^0-9]*?(` + timeExpr + `)`)
	arriveLabelRegex = regexp.MustCompile(`(?i)\barriv\w*\b[^0-9]*?(` + timeExpr + `)`)

	summaryAirlineRegex   = regexp.MustCompile(`(?i)\bflights? with ([^.]+?)\.`)
	summaryDepartureRegex = regexp.MustCompile(`(?i)\bleaves\b.*?\bat (` + timeExpr + `)`)
	summaryArrivalRegex   = regexp.MustCompile(`(?i)\barrives\b.*?\bat (` + timeExpr + `)`)
	summaryPriceRegex     = regexp.MustCompile(`(?i)\b(\d{1,3}(?:,\d{3})+|\d+)(\.\d{2})? US dollars\b`)
)

func label(s *goquery.Selection) string {
	return htmlutil.Clean(s.AttrOr("aria-label", ""))
}

// labelled returns the block itself and its descendants when they carry an
// aria-label, optionally only those whose label contains keyword (case
// insensitive).
func labelled(block *goquery.Selection, keyword string) *goquery.Selection {
	all := block.Filter("[aria-label]").AddSelection(block.Find("[aria-label]"))
	if keyword == "" {
		return all
	}
	keyword = strings.ToLower(keyword)
	return all.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.AttrOr("aria-label", "")), keyword)
	})
}

// firstMatch returns the first regex match found in text(s) for each element
// of sel in document order.
func firstMatch(sel *goquery.Selection, re *regexp.Regexp, text func(*goquery.Selection) string) (string, bool) {
	var out string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = re.FindString(text(s))
		return out == ""
	})
	return out, out != ""
}

// firstGroup is firstMatch for the first capture group.
func firstGroup(sel *goquery.Selection, re *regexp.Regexp, text func(*goquery.Selection) string) (string, bool) {
	var out string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		groups := re.FindStringSubmatch(text(s))
		if len(groups) > 1 {
			out = groups[1]
		}
		return out == ""
	})
	return out, out != ""
}

func visibleText(block *goquery.Selection) string {
	return htmlutil.SelectionText(block)
}

// labelMatch finds pattern inside the aria-label of elements labelled with keyword.
func labelMatch(name, keyword string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Extract: func(block *goquery.Selection) (string, bool) {
			return firstMatch(labelled(block, keyword), re, label)
		},
	}
}

// labelGroup finds the first capture group of pattern inside the aria-label
// of elements labelled with keyword.
func labelGroup(name, keyword string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Extract: func(block *goquery.Selection) (string, bool) {
			return firstGroup(labelled(block, keyword), re, label)
		},
	}
}

// labelledTextMatch finds pattern inside the visible text of elements labelled
// with keyword. Elements whose text matches more than once are ambiguous and
// skipped.
func labelledTextMatch(name, keyword string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Extract: func(block *goquery.Selection) (string, bool) {
			var out string
			labelled(block, keyword).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				matches := re.FindAllString(visibleText(s), 2)
				if len(matches) == 1 {
					out = matches[0]
				}
				return out == ""
			})
			return out, out != ""
		},
	}
}

// summaryMatch finds the first capture group of pattern in any aria-label
// of the block, result rows usually carry one sentence describing the flight.
func summaryMatch(name string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Extract: func(block *goquery.Selection) (string, bool) {
			return firstGroup(labelled(block, ""), re, label)
		},
	}
}

func textMatch(name string, re *regexp.Regexp) Strategy {
	return Strategy{
		Name: name,
		Extract: func(block *goquery.Selection) (string, bool) {
			value := re.FindString(visibleText(block))
			return value, value != ""
		},
	}
}

// textOrdinal picks the n-th time on the block's visible text, it only trusts
// blocks that show at least a departure and an arrival.
func textOrdinal(name string, n int) Strategy {
	return Strategy{
		Name: name,
		Extract: func(block *goquery.Selection) (string, bool) {
			times := timeRegex.FindAllString(visibleText(block), -1)
			if len(times) < 2 || n >= len(times) {
				return "", false
			}
			return times[n], true
		},
	}
}

func airlineFromLabelled(block *goquery.Selection) (string, bool) {
	var out string
	labelled(block, "airline").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = visibleText(s)
		if out == "" {
			text := label(s)
			if _, after, found := strings.Cut(text, ":"); found {
				text = after
			}
			out = strings.TrimSpace(strings.TrimSuffix(text, "."))
		}
		return out == ""
	})
	return out, out != ""
}

func airlineFromClass(block *goquery.Selection) (string, bool) {
	sel := block.Find(`[class*="airline"], [class*="carrier"]`)
	var out string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = visibleText(s)
		return out == ""
	})
	return out, out != ""
}

func airlineFromLogo(block *goquery.Selection) (string, bool) {
	var out string
	block.Find("img[alt]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		alt := htmlutil.Clean(s.AttrOr("alt", ""))
		alt = strings.TrimSpace(strings.TrimSuffix(alt, " logo"))
		if alt != "" && !strings.ContainsAny(alt, "0123456789$") {
			out = alt
		}
		return out == ""
	})
	return out, out != ""
}

func normalizePrice(value string) string {
	return strings.Replace(value, "$ ", "$", 1)
}

func normalizeStops(value string) string {
	groups := stopsRegex.FindStringSubmatch(value)
	if groups == nil || groups[1] == "" {
		return "Nonstop"
	}
	n, err := strconv.Atoi(groups[1])
	if err != nil || n == 0 {
		return "Nonstop"
	}
	if n == 1 {
		return "1 stop"
	}
	return fmt.Sprintf("%d stops", n)
}

// mapped wraps a strategy so its result goes through fn.
func mapped(s Strategy, fn func(string) string) Strategy {
	return Strategy{
		Name: s.Name,
		Extract: func(block *goquery.Selection) (string, bool) {
			value, ok := s.Extract(block)
			if !ok {
				return "", false
			}
			return fn(value), true
		},
	}
}

// DefaultLocators returns the chains tuned against the current results page.
func DefaultLocators() Locators {
	return Locators{
		Airline: Chain{
			{Name: "airline-label", Extract: airlineFromLabelled},
			summaryMatch("summary-label", summaryAirlineRegex),
			{Name: "class-hint", Extract: airlineFromClass},
			{Name: "logo-alt", Extract: airlineFromLogo},
		},
		Departure: Chain{
			labelGroup("depart-label", "depart", departLabelRegex),
			labelledTextMatch("depart-text", "depart", timeRegex),
			summaryMatch("summary-label", summaryDepartureRegex),
			textOrdinal("visible-text", 0),
		},
		Arrival: Chain{
			labelGroup("arrive-label", "arriv", arriveLabelRegex),
			labelledTextMatch("arrive-text", "arriv", timeRegex),
			summaryMatch("summary-label", summaryArrivalRegex),
			textOrdinal("visible-text", 1),
		},
		Duration: Chain{
			labelMatch("duration-label", "duration", durationRegex),
			labelledTextMatch("duration-text", "duration", durationRegex),
			textMatch("visible-text", durationRegex),
		},
		Stops: Chain{
			mapped(labelMatch("stops-label", "stop", stopsRegex), normalizeStops),
			mapped(textMatch("visible-text", stopsRegex), normalizeStops),
		},
		Price: Chain{
			mapped(labelMatch("price-label", "$", priceRegex), normalizePrice),
			{
				Name: "dollars-label",
				Extract: func(block *goquery.Selection) (string, bool) {
					var out string
					labelled(block, "dollars").EachWithBreak(func(_ int, s *goquery.Selection) bool {
						groups := summaryPriceRegex.FindStringSubmatch(label(s))
						if groups != nil {
							out = "$" + groups[1] + groups[2]
						}
						return out == ""
					})
					return out, out != ""
				},
			},
			mapped(textMatch("visible-text", priceRegex), normalizePrice),
		},
	}
}
