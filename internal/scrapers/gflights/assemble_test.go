package gflights

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flightscraper-backend/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func readFixture(t testing.TB, name string) []byte {
	body, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return body
}

func TestAssembleResultsPage(t *testing.T) {
	recorder := telemetry.NewRecorder()
	assembler := NewAssembler(DefaultLocators(), nil, recorder)

	records, diag, err := assembler.AssembleHTML(readFixture(t, "results.html"))
	require.NoError(t, err)

	expected := []FlightRecord{
		{
			Airline:       "Delta",
			DepartureTime: "7:00 AM",
			ArrivalTime:   "10:30 AM",
			Duration:      "5 hr 30 min",
			Stops:         "Nonstop",
			Price:         "$245",
		},
		{
			Airline:       "United",
			DepartureTime: "6:15 PM",
			ArrivalTime:   "11:05 PM",
			Duration:      "7 hr 50 min",
			Stops:         "1 stop",
			Price:         "$1,234",
		},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, "div-listitem", diag.ContainerStrategy)
	require.Equal(t, 3, diag.ContainersFound)
	require.False(t, diag.StructuralMiss)
	require.Empty(t, diag.Warnings())
	require.Equal(t, []BlockMiss{{Index: 2, Missing: []Field{FIELD_PRICE}}}, diag.Dropped)

	warnings := recorder.Find(telemetry.KindWarning, report_assembler_partial_field_miss)
	require.Len(t, warnings, 1)
	require.Equal(t, []any{2, "price"}, warnings[0].Params)
}

func TestAssembleDefaultsStops(t *testing.T) {
	assembler := NewAssembler(DefaultLocators(), nil, telemetry.NewRecorder())

	records, diag, err := assembler.AssembleHTML(readFixture(t, "legacy.html"))
	require.NoError(t, err)
	require.Equal(t, "result-index", diag.ContainerStrategy)
	require.Equal(t, []FlightRecord{{
		Airline:       "Alaska",
		DepartureTime: "8:05 AM",
		ArrivalTime:   "11:20 AM",
		Duration:      "5h 15m",
		Stops:         "Nonstop",
		Price:         "$99.50",
	}}, records)
}

func TestAssembleStructuralMiss(t *testing.T) {
	recorder := telemetry.NewRecorder()
	assembler := NewAssembler(DefaultLocators(), nil, recorder)

	records, diag, err := assembler.AssembleHTML(readFixture(t, "empty.html"))
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
	require.True(t, diag.StructuralMiss)
	require.Equal(t, 0, diag.ContainersFound)
	require.Len(t, diag.Warnings(), 1)
	require.Len(t, recorder.Find(telemetry.KindWarning, report_assembler_structural_miss), 1)
}

func TestAssembleAllBlocksIncomplete(t *testing.T) {
	assembler := NewAssembler(DefaultLocators(), nil, telemetry.NewRecorder())

	records, diag, err := assembler.AssembleHTML([]byte(
		`<div role="listitem">Delta</div><div role="listitem">United</div>`,
	))
	require.NoError(t, err)
	require.Empty(t, records)
	require.True(t, diag.StructuralMiss)
	require.Equal(t, 2, diag.ContainersFound)
	require.Len(t, diag.Dropped, 2)
	require.Contains(t, diag.Warnings()[0], "2 result containers")
}

func TestAssembleIsIdempotent(t *testing.T) {
	assembler := NewAssembler(DefaultLocators(), nil, telemetry.NewRecorder())
	body := readFixture(t, "results.html")

	first, firstDiag, err := assembler.AssembleHTML(body)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	require.NoError(t, err)
	second, secondDiag := assembler.Assemble(doc)
	third, thirdDiag := assembler.Assemble(doc)

	require.Equal(t, first, second)
	require.Equal(t, second, third)
	require.Equal(t, firstDiag, secondDiag)
	require.Equal(t, secondDiag, thirdDiag)
}

func TestAssembleRecoversFromPanickingStrategy(t *testing.T) {
	locators := DefaultLocators()
	locators.Airline = Chain{{
		Name: "explodes",
		Extract: func(block *goquery.Selection) (string, bool) {
			if strings.Contains(block.Text(), "6:15 PM") {
				panic("unexpected markup")
			}
			return "Some Airline", true
		},
	}}

	recorder := telemetry.NewRecorder()
	assembler := NewAssembler(locators, nil, recorder)
	records, diag, err := assembler.AssembleHTML(readFixture(t, "results.html"))
	require.NoError(t, err)

	require.Len(t, records, 1)
	require.Equal(t, "Some Airline", records[0].Airline)
	require.Len(t, diag.Dropped, 2)
	require.Equal(t, 1, diag.Dropped[0].Index)
	require.Contains(t, diag.Dropped[0].Panic, "unexpected markup")
	require.Len(t, recorder.Find(telemetry.KindBroken, report_assembler_block), 1)
}

func TestContainerChainOrder(t *testing.T) {
	testCases := []struct {
		name     string
		markup   string
		strategy string
		count    int
	}{
		{
			name:     "li listitems",
			markup:   `<ul><li role="listitem">a</li><li role="listitem">b</li></ul>`,
			strategy: "li-listitem",
			count:    2,
		},
		{
			name:     "children of a list",
			markup:   `<ul role="list"><li>a</li><li>b</li><li>c</li></ul>`,
			strategy: "list-children",
			count:    3,
		},
		{
			name:     "priced list entries",
			markup:   `<ol><li>Delta $120</li><li>Filters</li></ol>`,
			strategy: "priced-li",
			count:    1,
		},
		{
			name:     "div listitems win over everything else",
			markup:   `<div role="listitem">a</div><ul role="list"><li>b</li></ul>`,
			strategy: "div-listitem",
			count:    1,
		},
	}

	assembler := NewAssembler(DefaultLocators(), nil, telemetry.NewRecorder())
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(test.markup))
			require.NoError(t, err)
			blocks, strategy := assembler.Blocks(doc.Selection)
			require.Equal(t, test.strategy, strategy)
			require.Equal(t, test.count, blocks.Length())
		})
	}
}
