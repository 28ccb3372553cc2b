package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	modelElementID        = "thisModelNumberIs"
	downstreamTableHeader = "Downstream Bonded Channels"
	upstreamTableHeader   = "Upstream Bonded Channels"

	// Rows 1 and 2 of a channel table are headers.
	headerRows = 2
)

type scanMode int

const (
	modeNone scanMode = iota
	modeModel
	modeTable
)

type tableType int

const (
	tableUnknown tableType = iota
	tableDownstream
	tableUpstream
)

func (t tableType) String() string {
	switch t {
	case tableDownstream:
		return "downstream"
	case tableUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

type eventKind int

const (
	startTagEvent eventKind = iota
	endTagEvent
	textEvent
)

// event is a single markup token relevant to the channel table scan.
type event struct {
	kind  eventKind
	tag   atom.Atom
	attrs []html.Attribute
	text  string
}

// scanState is the position of the scan within the document. Row and column
// counters are 1-based once the first <tr>/<td> of a table has been seen.
type scanState struct {
	mode  scanMode
	table tableType
	row   int
	col   int
}

type emissionKind int

const (
	emitNothing emissionKind = iota
	emitModel
	emitCell
)

// emission is the output of one scan step: either the model name or a data
// cell at a logical row index (0 is the first row after the headers).
type emission struct {
	kind  emissionKind
	table tableType
	index int
	col   int
	text  string
}

// next is the transition function of the table scan.
func (s scanState) next(ev event) (scanState, emission) {
	switch ev.kind {
	case startTagEvent:
		for _, attr := range ev.attrs {
			if attr.Key == "id" && attr.Val == modelElementID {
				s.mode = modeModel
			}
		}
		switch ev.tag {
		case atom.Table:
			s = scanState{mode: modeTable}
		case atom.Tr:
			s.row++
			s.col = 0
		case atom.Td:
			s.col++
		}

	case endTagEvent:
		if ev.tag == atom.Table && s.mode == modeTable {
			s.mode = modeNone
		}

	case textEvent:
		text := strings.TrimSpace(ev.text)
		if text == "" {
			return s, emission{}
		}
		switch s.mode {
		case modeModel:
			s.mode = modeNone
			return s, emission{kind: emitModel, text: text}
		case modeTable:
			if s.table == tableUnknown {
				if s.row == 1 && s.col == 0 {
					switch text {
					case downstreamTableHeader:
						s.table = tableDownstream
					case upstreamTableHeader:
						s.table = tableUpstream
					}
				}
				return s, emission{}
			}
			if s.row > headerRows && s.col > 0 {
				return s, emission{
					kind:  emitCell,
					table: s.table,
					index: s.row - headerRows - 1,
					col:   s.col,
					text:  text,
				}
			}
		}
	}
	return s, emission{}
}

// parseError reports a cell whose numeric value could not be read.
type parseError struct {
	table tableType
	index int
	col   int
	text  string
	err   error
}

func (e *parseError) Error() string {
	return fmt.Sprintf("%s table row %d column %d: cannot parse %q: %v", e.table, e.index, e.col, e.text, e.err)
}

func (e *parseError) Unwrap() error {
	return e.err
}

// apply records an emission in the snapshot.
func (snap *Snapshot) apply(em emission) error {
	switch em.kind {
	case emitModel:
		snap.Model = em.text
	case emitCell:
		cellErr := func(err error) error {
			return &parseError{table: em.table, index: em.index, col: em.col, text: em.text, err: err}
		}
		switch em.table {
		case tableDownstream:
			for len(snap.Downstream) <= em.index {
				snap.Downstream = append(snap.Downstream, DownstreamRecord{})
			}
			r := &snap.Downstream[em.index]
			switch em.col {
			case 1:
				r.Channel = em.text
			case 2:
				r.Locked = em.text
			case 3:
				r.Modulation = em.text
			case 4:
				r.ChannelID = em.text
			case 5:
				v, err := parseUnit(em.text, 1000000)
				if err != nil {
					return cellErr(err)
				}
				r.FrequencyMHz = &v
			case 6:
				r.Power = leadingToken(em.text)
			case 7:
				r.SNR = leadingToken(em.text)
			case 8:
				r.Corrected = em.text
			case 9:
				r.Uncorrectable = em.text
			}
		case tableUpstream:
			for len(snap.Upstream) <= em.index {
				snap.Upstream = append(snap.Upstream, UpstreamRecord{})
			}
			r := &snap.Upstream[em.index]
			switch em.col {
			case 1:
				r.Channel = em.text
			case 2:
				r.Locked = em.text
			case 3:
				r.Type = em.text
			case 4:
				r.ChannelID = em.text
			case 5:
				v, err := parseUnit(em.text, 1000)
				if err != nil {
					return cellErr(err)
				}
				r.WidthMHz = &v
			case 6:
				v, err := parseUnit(em.text, 1000000)
				if err != nil {
					return cellErr(err)
				}
				r.FrequencyMHz = &v
			case 7:
				r.Power = leadingToken(em.text)
			}
		}
	}
	return nil
}

// leadingToken returns the text before the first space, e.g. "0.6" for
// "0.6 dBmV".
func leadingToken(s string) string {
	return strings.SplitN(s, " ", 2)[0]
}

// parseUnit converts an integer "<n> <unit>" cell into MHz by dividing by divisor.
func parseUnit(s string, divisor float64) (float64, error) {
	v, err := strconv.ParseInt(leadingToken(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(v) / divisor, nil
}

// extract runs the table scan over a sequence of events.
func extract(events []event) (*Snapshot, error) {
	var (
		state scanState
		em    emission
	)
	snap := &Snapshot{}
	for _, ev := range events {
		state, em = state.next(ev)
		if err := snap.apply(em); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// tokenize reads a document into the start tag, end tag and text events the
// table scan consumes.
func tokenize(r io.Reader) ([]event, error) {
	events := []event{}
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return events, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			events = append(events, event{kind: startTagEvent, tag: t.DataAtom, attrs: t.Attr})
		case html.EndTagToken:
			t := z.Token()
			events = append(events, event{kind: endTagEvent, tag: t.DataAtom})
		case html.TextToken:
			events = append(events, event{kind: textEvent, text: z.Token().Data})
		}
	}
}

func parseStatus(r io.Reader) (*Snapshot, error) {
	events, err := tokenize(r)
	if err != nil {
		return nil, err
	}
	return extract(events)
}
