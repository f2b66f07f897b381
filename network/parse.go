package network

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError names the offending line so a caller can report a precise
// failure without any partial network surviving.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("network: parse error at line %d: %s", e.Line, e.Msg)
}

// lineScanner walks non-blank lines and hands out their
// whitespace-separated fields, tracking a 1-based line number for error
// messages.
type lineScanner struct {
	sc   *bufio.Scanner
	line int
}

func newLineScanner(r io.Reader) *lineScanner {
	return &lineScanner{sc: bufio.NewScanner(r)}
}

func (ls *lineScanner) next() ([]string, bool) {
	for ls.sc.Scan() {
		ls.line++
		text := strings.TrimSpace(ls.sc.Text())
		if text == "" {
			continue
		}
		return strings.Fields(text), true
	}
	return nil, false
}

func (ls *lineScanner) fail(format string, a ...any) error {
	return &ParseError{Line: ls.line, Msg: fmt.Sprintf(format, a...)}
}

func parseFloat(ls *lineScanner, s string, field string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ls.fail("field %q is not numeric: %v", field, err)
	}
	return v, nil
}

func parseInt(ls *lineScanner, s string, field string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, ls.fail("field %q is not an integer: %v", field, err)
	}
	return v, nil
}

func expectFields(ls *lineScanner, want int) ([]string, error) {
	fields, ok := ls.next()
	if !ok {
		return nil, ls.fail("expected a line but reached end of file")
	}
	if len(fields) != want {
		return nil, ls.fail("expected %d fields, got %d (%v)", want, len(fields), fields)
	}
	return fields, nil
}

func expectTag(ls *lineScanner, fields []string, tag string) error {
	if fields[0] != tag {
		return ls.fail("expected tag %q, got %q", tag, fields[0])
	}
	return nil
}

// Parse detects the input format (simple vs complex) from the token
// count of the "T" header line and dispatches to the matching parser.
func Parse(r io.Reader) (*Network, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, &ParseError{Line: 0, Msg: "empty input"}
	}
	firstLine := strings.Fields(strings.SplitN(trimmed, "\n", 2)[0])
	switch len(firstLine) {
	case 2:
		return ParseSimple(strings.NewReader(trimmed))
	case 3:
		return ParseComplex(strings.NewReader(trimmed))
	default:
		return nil, &ParseError{Line: 1, Msg: fmt.Sprintf("unrecognised header line %v", firstLine)}
	}
}

// ParseSimple reads the single-crusher input format:
//
//	T <NT>
//	C 1
//	<empty_mean> <empty_sd>
//	S <NS>
//	repeat NS: <travel_mean> <travel_sd> <fill_mean> <fill_sd>
func ParseSimple(r io.Reader) (*Network, error) {
	ls := newLineScanner(r)

	fields, err := expectFields(ls, 2)
	if err != nil {
		return nil, err
	}
	if err := expectTag(ls, fields, "T"); err != nil {
		return nil, err
	}
	numTrucks, err := parseInt(ls, fields[1], "NT")
	if err != nil {
		return nil, err
	}

	fields, err = expectFields(ls, 2)
	if err != nil {
		return nil, err
	}
	if err := expectTag(ls, fields, "C"); err != nil {
		return nil, err
	}
	numCrushers, err := parseInt(ls, fields[1], "NC")
	if err != nil {
		return nil, err
	}
	if numCrushers != 1 {
		return nil, ls.fail("simple network requires exactly 1 crusher, got %d", numCrushers)
	}

	fields, err = expectFields(ls, 2)
	if err != nil {
		return nil, err
	}
	emptyMean, err := parseFloat(ls, fields[0], "empty_mean")
	if err != nil {
		return nil, err
	}
	emptySD, err := parseFloat(ls, fields[1], "empty_sd")
	if err != nil {
		return nil, err
	}

	fields, err = expectFields(ls, 2)
	if err != nil {
		return nil, err
	}
	if err := expectTag(ls, fields, "S"); err != nil {
		return nil, err
	}
	numShovels, err := parseInt(ls, fields[1], "NS")
	if err != nil {
		return nil, err
	}
	if numShovels < 1 {
		return nil, ls.fail("simple network requires at least 1 shovel, got %d", numShovels)
	}

	net := &Network{
		NumTrucks:    numTrucks,
		FullSlowdown: SimpleFullSlowdown,
		Simple:       true,
		Crushers:     []Crusher{{EmptyMean: emptyMean, EmptySD: emptySD}},
		Shovels:      make([]Shovel, numShovels),
		Roads:        make([]Road, numShovels),
		Routes:       make([]Route, numShovels),
	}

	for i := 0; i < numShovels; i++ {
		fields, err = expectFields(ls, 4)
		if err != nil {
			return nil, err
		}
		travelMean, err := parseFloat(ls, fields[0], "travel_mean")
		if err != nil {
			return nil, err
		}
		travelSD, err := parseFloat(ls, fields[1], "travel_sd")
		if err != nil {
			return nil, err
		}
		fillMean, err := parseFloat(ls, fields[2], "fill_mean")
		if err != nil {
			return nil, err
		}
		fillSD, err := parseFloat(ls, fields[3], "fill_sd")
		if err != nil {
			return nil, err
		}
		net.Shovels[i] = Shovel{FillMean: fillMean, FillSD: fillSD}
		net.Roads[i] = Road{
			A:          Node{Kind: NodeCrusher, Index: 0},
			B:          Node{Kind: NodeShovel, Index: i},
			TravelMean: travelMean,
			TravelSD:   travelSD,
			Kind:       TwoLane,
		}
		net.Routes[i] = Route{Crusher: 0, Shovel: i, Roads: []int{i}, Directions: []int{0}}
	}

	if extra, ok := ls.next(); ok {
		return nil, ls.fail("trailing content after expected input: %v", extra)
	}

	net.indexRoutes()
	return net, nil
}

// ParseComplex reads the multi-crusher routed network format:
//
//	T <NT> <full_slowdown>
//	C <NC>
//	repeat NC: <empty_mean> <empty_sd>
//	S <NS>
//	repeat NS: <fill_mean> <fill_sd>
//	R <NR> N <NN>
//	repeat NR: <n1> <i1> <n2> <i2> <travel_mean> <travel_sd> <road_kind>
func ParseComplex(r io.Reader) (*Network, error) {
	ls := newLineScanner(r)

	fields, err := expectFields(ls, 3)
	if err != nil {
		return nil, err
	}
	if err := expectTag(ls, fields, "T"); err != nil {
		return nil, err
	}
	numTrucks, err := parseInt(ls, fields[1], "NT")
	if err != nil {
		return nil, err
	}
	fullSlowdown, err := parseFloat(ls, fields[2], "full_slowdown")
	if err != nil {
		return nil, err
	}

	fields, err = expectFields(ls, 2)
	if err != nil {
		return nil, err
	}
	if err := expectTag(ls, fields, "C"); err != nil {
		return nil, err
	}
	numCrushers, err := parseInt(ls, fields[1], "NC")
	if err != nil {
		return nil, err
	}
	crushers := make([]Crusher, numCrushers)
	for i := 0; i < numCrushers; i++ {
		fields, err = expectFields(ls, 2)
		if err != nil {
			return nil, err
		}
		mean, err := parseFloat(ls, fields[0], "empty_mean")
		if err != nil {
			return nil, err
		}
		sd, err := parseFloat(ls, fields[1], "empty_sd")
		if err != nil {
			return nil, err
		}
		crushers[i] = Crusher{EmptyMean: mean, EmptySD: sd}
	}

	fields, err = expectFields(ls, 2)
	if err != nil {
		return nil, err
	}
	if err := expectTag(ls, fields, "S"); err != nil {
		return nil, err
	}
	numShovels, err := parseInt(ls, fields[1], "NS")
	if err != nil {
		return nil, err
	}
	shovels := make([]Shovel, numShovels)
	for i := 0; i < numShovels; i++ {
		fields, err = expectFields(ls, 2)
		if err != nil {
			return nil, err
		}
		mean, err := parseFloat(ls, fields[0], "fill_mean")
		if err != nil {
			return nil, err
		}
		sd, err := parseFloat(ls, fields[1], "fill_sd")
		if err != nil {
			return nil, err
		}
		shovels[i] = Shovel{FillMean: mean, FillSD: sd}
	}

	fields, err = expectFields(ls, 4)
	if err != nil {
		return nil, err
	}
	if err := expectTag(ls, fields, "R"); err != nil {
		return nil, err
	}
	numRoads, err := parseInt(ls, fields[1], "NR")
	if err != nil {
		return nil, err
	}
	if fields[2] != "N" {
		return nil, ls.fail("expected tag \"N\", got %q", fields[2])
	}
	numIntermediate, err := parseInt(ls, fields[3], "NN")
	if err != nil {
		return nil, err
	}

	parseNode := func(kind string, idx string, field string) (Node, error) {
		i, err := parseInt(ls, idx, field+"_index")
		if err != nil {
			return Node{}, err
		}
		switch kind {
		case "c":
			if i < 0 || i >= numCrushers {
				return Node{}, ls.fail("crusher index %d out of range [0,%d)", i, numCrushers)
			}
			return Node{Kind: NodeCrusher, Index: i}, nil
		case "s":
			if i < 0 || i >= numShovels {
				return Node{}, ls.fail("shovel index %d out of range [0,%d)", i, numShovels)
			}
			return Node{Kind: NodeShovel, Index: i}, nil
		case "n":
			if i < 0 || i >= numIntermediate {
				return Node{}, ls.fail("intermediate node index %d out of range [0,%d)", i, numIntermediate)
			}
			return Node{Kind: NodeIntermediate, Index: i}, nil
		default:
			return Node{}, ls.fail("unknown node kind %q", kind)
		}
	}

	roads := make([]Road, numRoads)
	for i := 0; i < numRoads; i++ {
		fields, err = expectFields(ls, 7)
		if err != nil {
			return nil, err
		}
		a, err := parseNode(fields[0], fields[1], "n1")
		if err != nil {
			return nil, err
		}
		b, err := parseNode(fields[2], fields[3], "n2")
		if err != nil {
			return nil, err
		}
		mean, err := parseFloat(ls, fields[4], "travel_mean")
		if err != nil {
			return nil, err
		}
		sd, err := parseFloat(ls, fields[5], "travel_sd")
		if err != nil {
			return nil, err
		}
		var kind LaneKind
		switch fields[6] {
		case "t":
			kind = TwoLane
		case "o":
			kind = OneLane
		default:
			return nil, ls.fail("unknown road kind %q (want \"t\" or \"o\")", fields[6])
		}
		roads[i] = Road{A: a, B: b, TravelMean: mean, TravelSD: sd, Kind: kind}
	}

	if extra, ok := ls.next(); ok {
		return nil, ls.fail("trailing content after expected input: %v", extra)
	}

	net := &Network{
		NumTrucks:    numTrucks,
		FullSlowdown: fullSlowdown,
		Simple:       false,
		Crushers:     crushers,
		Shovels:      shovels,
		Roads:        roads,
	}
	net.Routes = enumerateRoutes(net)
	net.indexRoutes()
	return net, nil
}
