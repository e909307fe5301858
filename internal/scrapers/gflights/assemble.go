package gflights

import (
	"bytes"
	"fmt"
	"strings"

	"flightscraper-backend/internal/components/assert"
	"flightscraper-backend/internal/components/telemetry"
	"flightscraper-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_assembler_partial_field_miss = "assembler.partial-field-miss"
	report_assembler_structural_miss    = "assembler.structural-miss"
	report_assembler_block              = "assembler.block"
)

type Field int

const (
	FIELD_AIRLINE Field = iota
	FIELD_DEPARTURE_TIME
	FIELD_ARRIVAL_TIME
	FIELD_DURATION
	FIELD_STOPS
	FIELD_PRICE
)

func (f Field) String() string {
	switch f {
	case FIELD_AIRLINE:
		return "airline"
	case FIELD_DEPARTURE_TIME:
		return "departure_time"
	case FIELD_ARRIVAL_TIME:
		return "arrival_time"
	case FIELD_DURATION:
		return "duration"
	case FIELD_STOPS:
		return "stops"
	case FIELD_PRICE:
		return "price"
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ContainerStrategy finds the result blocks of a page.
type ContainerStrategy struct {
	Name string
	Find func(doc *goquery.Selection) *goquery.Selection
}

func selector(name, sel string) ContainerStrategy {
	return ContainerStrategy{
		Name: name,
		Find: func(doc *goquery.Selection) *goquery.Selection {
			return doc.Find(sel)
		},
	}
}

// DefaultContainers is tried in order, the first strategy that finds any
// block decides the blocks for the whole page.
var DefaultContainers = []ContainerStrategy{
	selector("div-listitem", `div[role="listitem"]`),
	selector("li-listitem", `li[role="listitem"]`),
	selector("list-children", `ul[role="list"] > li`),
	selector("result-index", `[data-result-index]`),
	{
		Name: "priced-li",
		Find: func(doc *goquery.Selection) *goquery.Selection {
			return doc.Find("li").FilterFunction(func(_ int, s *goquery.Selection) bool {
				return priceRegex.MatchString(htmlutil.SelectionText(s))
			})
		},
	},
}

// BlockMiss describes a result block that was dropped.
type BlockMiss struct {
	Index   int
	Missing []Field
	// Panic is set when extracting the block panicked.
	Panic string
}

// Diagnostics describes how well a page matched the extractor's expectations.
type Diagnostics struct {
	ContainerStrategy string
	ContainersFound   int
	Dropped           []BlockMiss
	// StructuralMiss is set when the page yielded no records at all, which
	// usually means the markup changed.
	StructuralMiss bool
}

// Warnings renders the diagnostics worth surfacing to a caller.
func (d Diagnostics) Warnings() []string {
	if !d.StructuralMiss {
		return nil
	}
	if d.ContainersFound == 0 {
		return []string{"structural miss: no result containers found on the page"}
	}
	return []string{fmt.Sprintf(
		"structural miss: none of the %d result containers held a complete flight",
		d.ContainersFound,
	)}
}

// BlockResult is what the field chains found in one block.
type BlockResult struct {
	Record  FlightRecord
	Missing []Field
}

func (r BlockResult) Complete() bool {
	return len(r.Missing) == 0
}

// Assembler turns a results page into flight records.
type Assembler struct {
	locators   Locators
	containers []ContainerStrategy
	tel        telemetry.API
}

func NewAssembler(locators Locators, containers []ContainerStrategy, tel telemetry.API) Assembler {
	assert.NotNil(tel)
	if len(containers) == 0 {
		containers = DefaultContainers
	}
	return Assembler{
		locators:   locators,
		containers: containers,
		tel:        telemetry.NewScopedAPI("gflights", tel),
	}
}

// ExtractBlock runs every field chain over block. Stops is never reported
// missing, it falls back to "Nonstop".
func (a Assembler) ExtractBlock(block *goquery.Selection) BlockResult {
	var result BlockResult
	fields := []struct {
		field Field
		chain Chain
		dst   *string
	}{
		{FIELD_AIRLINE, a.locators.Airline, &result.Record.Airline},
		{FIELD_DEPARTURE_TIME, a.locators.Departure, &result.Record.DepartureTime},
		{FIELD_ARRIVAL_TIME, a.locators.Arrival, &result.Record.ArrivalTime},
		{FIELD_DURATION, a.locators.Duration, &result.Record.Duration},
		{FIELD_STOPS, a.locators.Stops, &result.Record.Stops},
		{FIELD_PRICE, a.locators.Price, &result.Record.Price},
	}

	for _, f := range fields {
		value, _, ok := f.chain.Run(block)
		value = htmlutil.Clean(value)
		if ok && value != "" {
			*f.dst = value
			continue
		}
		if f.field == FIELD_STOPS {
			*f.dst = "Nonstop"
			continue
		}
		result.Missing = append(result.Missing, f.field)
	}

	return result
}

func (a Assembler) safeExtractBlock(block *goquery.Selection) (result BlockResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.ExtractBlock(block), nil
}

func fieldNames(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}

// Blocks returns the result blocks of doc and the name of the container
// strategy that found them, blocks is nil when no strategy matched.
func (a Assembler) Blocks(doc *goquery.Selection) (*goquery.Selection, string) {
	for _, c := range a.containers {
		blocks := c.Find(doc)
		if blocks.Length() > 0 {
			return blocks, c.Name
		}
	}
	return nil, ""
}

// Assemble extracts every complete record from doc. It only reads doc, so
// calling it twice on the same page gives the same records.
func (a Assembler) Assemble(doc *goquery.Document) ([]FlightRecord, Diagnostics) {
	var diag Diagnostics
	records := []FlightRecord{}

	blocks, strategy := a.Blocks(doc.Selection)
	if blocks == nil {
		diag.StructuralMiss = true
		a.tel.ReportWarning(report_assembler_structural_miss, "no containers")
		return records, diag
	}
	diag.ContainerStrategy = strategy
	diag.ContainersFound = blocks.Length()

	blocks.Each(func(i int, block *goquery.Selection) {
		result, err := a.safeExtractBlock(block)
		if err != nil {
			a.tel.ReportBroken(report_assembler_block, i, err)
			diag.Dropped = append(diag.Dropped, BlockMiss{Index: i, Panic: err.Error()})
			return
		}
		if !result.Complete() {
			a.tel.ReportWarning(report_assembler_partial_field_miss, i, fieldNames(result.Missing))
			diag.Dropped = append(diag.Dropped, BlockMiss{Index: i, Missing: result.Missing})
			return
		}
		records = append(records, result.Record)
	})

	if len(records) == 0 {
		diag.StructuralMiss = true
		a.tel.ReportWarning(report_assembler_structural_miss, strategy, diag.ContainersFound)
	}

	return records, diag
}

// AssembleHTML parses body and assembles it.
func (a Assembler) AssembleHTML(body []byte) ([]FlightRecord, Diagnostics, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("parse html: %w", err)
	}
	records, diag := a.Assemble(doc)
	return records, diag, nil
}
