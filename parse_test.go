package main

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const statusPage = `<!DOCTYPE html>
<html>
<head><title>SURFboard SB6183</title></head>
<body>
<div class="header">
  <span id="thisModelNumberIs">SB6183</span>
</div>
<table class="simpleTable">
  <tr><th colspan="3"><strong>Startup Procedure</strong></th></tr>
  <tr><td><strong>Procedure</strong></td><td><strong>Status</strong></td><td><strong>Comment</strong></td></tr>
  <tr><td>Acquire Downstream Channel</td><td>591000000 Hz</td><td>Locked</td></tr>
</table>
<table class="simpleTable">
  <tr><th colspan="9"><strong>Downstream Bonded Channels</strong></th></tr>
  <tr>
    <td><strong>Channel</strong></td><td><strong>Lock Status</strong></td><td><strong>Modulation</strong></td>
    <td><strong>Channel ID</strong></td><td><strong>Frequency</strong></td><td><strong>Power</strong></td>
    <td><strong>SNR</strong></td><td><strong>Corrected</strong></td><td><strong>Uncorrectables</strong></td>
  </tr>
  <tr>
    <td>1</td><td>Locked</td><td>QAM256</td><td>5</td><td>549000000 Hz</td>
    <td>0.6 dBmV</td><td>40.2 dB</td><td>15</td><td>0</td>
  </tr>
  <tr>
    <td>2</td><td>Locked</td><td>QAM256</td><td>6</td><td>555000000 Hz</td>
    <td>-1.2 dBmV</td><td>39.8 dB</td><td>7</td><td>2</td>
  </tr>
  <tr>
    <td>3</td><td>Not Locked</td><td>Unknown</td><td>0</td><td>0 Hz</td>
    <td>0.0 dBmV</td><td>0.0 dB</td><td>0</td><td>0</td>
  </tr>
</table>
<table class="simpleTable">
  <tr><th colspan="7"><strong>Upstream Bonded Channels</strong></th></tr>
  <tr>
    <td><strong>Channel</strong></td><td><strong>Lock Status</strong></td><td><strong>US Channel Type</strong></td>
    <td><strong>Channel ID</strong></td><td><strong>Symbol Rate</strong></td><td><strong>Frequency</strong></td>
    <td><strong>Power</strong></td>
  </tr>
  <tr>
    <td>1</td><td>Locked</td><td>ATDMA</td><td>2</td><td>6400 kHz</td><td>36500000 Hz</td><td>42.0 dBmV</td>
  </tr>
  <tr>
    <td>2</td><td>Locked</td><td>ATDMA</td><td>1</td><td>3200 kHz</td><td>30600000 Hz</td><td>43.5 dBmV</td>
  </tr>
</table>
</body>
</html>
`

func TestParseStatus(t *testing.T) {
	snap, err := parseStatus(strings.NewReader(statusPage))
	require.NoError(t, err)

	assert.Equal(t, "SB6183", snap.Model)
	require.Len(t, snap.Downstream, 3)
	require.Len(t, snap.Upstream, 2)

	first := snap.Downstream[0]
	assert.Equal(t, "1", first.Channel)
	assert.Equal(t, "Locked", first.Locked)
	assert.Equal(t, "QAM256", first.Modulation)
	assert.Equal(t, "5", first.ChannelID)
	require.NotNil(t, first.FrequencyMHz)
	assert.InDelta(t, 549.0, *first.FrequencyMHz, 1e-9)
	assert.Equal(t, "0.6", first.Power)
	assert.Equal(t, "40.2", first.SNR)
	assert.Equal(t, "15", first.Corrected)
	assert.Equal(t, "0", first.Uncorrectable)

	assert.Equal(t, "-1.2", snap.Downstream[1].Power)
	assert.Equal(t, "Unknown", snap.Downstream[2].Modulation)

	up := snap.Upstream[0]
	assert.Equal(t, "1", up.Channel)
	assert.Equal(t, "Locked", up.Locked)
	assert.Equal(t, "ATDMA", up.Type)
	assert.Equal(t, "2", up.ChannelID)
	require.NotNil(t, up.WidthMHz)
	assert.InDelta(t, 6.4, *up.WidthMHz, 1e-9)
	require.NotNil(t, up.FrequencyMHz)
	assert.InDelta(t, 36.5, *up.FrequencyMHz, 1e-9)
	assert.Equal(t, "42.0", up.Power)
}

func TestParseStatusRowCounts(t *testing.T) {
	for _, n := range []int{0, 1, 4, 8} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			var b strings.Builder
			b.WriteString(`<table><tr><th>Downstream Bonded Channels</th></tr><tr><td>Channel</td></tr>`)
			for i := 1; i <= n; i++ {
				b.WriteString(`<tr><td>` + strconv.Itoa(i) + `</td><td>Locked</td><td>QAM256</td><td>` + strconv.Itoa(i+10) +
					`</td><td>` + strconv.Itoa(500000000+i*6000000) + ` Hz</td><td>1.0 dBmV</td><td>38.0 dB</td><td>0</td><td>0</td></tr>`)
			}
			b.WriteString(`</table><table><tr><th>Upstream Bonded Channels</th></tr><tr><td>Channel</td></tr>`)
			for i := 1; i <= n; i++ {
				b.WriteString(`<tr><td>` + strconv.Itoa(i) + `</td><td>Locked</td><td>ATDMA</td><td>` + strconv.Itoa(i) +
					`</td><td>6400 kHz</td><td>36500000 Hz</td><td>42.0 dBmV</td></tr>`)
			}
			b.WriteString(`</table>`)

			snap, err := parseStatus(strings.NewReader(b.String()))
			require.NoError(t, err)
			assert.Len(t, snap.Downstream, n)
			assert.Len(t, snap.Upstream, n)
			for i, r := range snap.Downstream {
				assert.Equal(t, strconv.Itoa(i+1), r.Channel)
			}
		})
	}
}

func TestParseStatusBadFrequency(t *testing.T) {
	page := `<table><tr><th>Downstream Bonded Channels</th></tr><tr><td>Channel</td></tr>
<tr><td>1</td><td>Locked</td><td>QAM256</td><td>5</td><td>n/a Hz</td></tr></table>`

	snap, err := parseStatus(strings.NewReader(page))
	require.Error(t, err)
	assert.Nil(t, snap)

	var perr *parseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, tableDownstream, perr.table)
	assert.Equal(t, 0, perr.index)
	assert.Equal(t, 5, perr.col)
	assert.Contains(t, err.Error(), `"n/a Hz"`)
}

func TestParseStatusIncompleteRow(t *testing.T) {
	page := `<table><tr><th>Upstream Bonded Channels</th></tr><tr><td>Channel</td></tr>
<tr><td>3</td><td>Locked</td><td>ATDMA</td></tr></table>`

	snap, err := parseStatus(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, snap.Upstream, 1)
	assert.Equal(t, "3", snap.Upstream[0].Channel)
	assert.Equal(t, "ATDMA", snap.Upstream[0].Type)
	assert.Empty(t, snap.Upstream[0].ChannelID)
	assert.Nil(t, snap.Upstream[0].FrequencyMHz)
	assert.Nil(t, snap.Upstream[0].WidthMHz)
}

func TestParseStatusNoTables(t *testing.T) {
	snap, err := parseStatus(strings.NewReader(`<html><body><p>Login required</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, snap.Model)
	assert.Empty(t, snap.Downstream)
	assert.Empty(t, snap.Upstream)
}

func start(a atom.Atom, attrs ...html.Attribute) event {
	return event{kind: startTagEvent, tag: a, attrs: attrs}
}

func end(a atom.Atom) event {
	return event{kind: endTagEvent, tag: a}
}

func text(s string) event {
	return event{kind: textEvent, text: s}
}

func TestScanStateModel(t *testing.T) {
	var s scanState
	var em emission

	s, em = s.next(start(atom.Span, html.Attribute{Key: "id", Val: modelElementID}))
	assert.Equal(t, modeModel, s.mode)
	assert.Equal(t, emitNothing, em.kind)

	s, em = s.next(text("  \n\t "))
	assert.Equal(t, modeModel, s.mode, "blank text must not consume the model")
	assert.Equal(t, emitNothing, em.kind)

	s, em = s.next(text(" SB6183 "))
	assert.Equal(t, modeNone, s.mode)
	assert.Equal(t, emission{kind: emitModel, text: "SB6183"}, em)

	_, em = s.next(text("SB6190"))
	assert.Equal(t, emitNothing, em.kind)
}

func TestScanStateTable(t *testing.T) {
	var s scanState
	var em emission

	s, _ = s.next(start(atom.Table))
	assert.Equal(t, scanState{mode: modeTable}, s)

	s, _ = s.next(start(atom.Tr))
	s, _ = s.next(start(atom.Th))
	assert.Equal(t, 0, s.col, "header cells are not counted")
	s, _ = s.next(text("Upstream Bonded Channels"))
	assert.Equal(t, tableUpstream, s.table)

	s, _ = s.next(start(atom.Tr))
	s, _ = s.next(start(atom.Td))
	s, em = s.next(text("Channel"))
	assert.Equal(t, emitNothing, em.kind, "second header row is not data")

	s, _ = s.next(start(atom.Tr))
	s, _ = s.next(start(atom.Td))
	s, _ = s.next(start(atom.Td))
	s, em = s.next(text("Locked"))
	assert.Equal(t, emission{kind: emitCell, table: tableUpstream, index: 0, col: 2, text: "Locked"}, em)

	s, _ = s.next(end(atom.Tr))
	s, _ = s.next(end(atom.Table))
	assert.Equal(t, modeNone, s.mode)

	_, em = s.next(text("stray"))
	assert.Equal(t, emitNothing, em.kind)
}

func TestScanStateDetectsOnlyFirstHeaderCell(t *testing.T) {
	var s scanState
	s, _ = s.next(start(atom.Table))
	s, _ = s.next(start(atom.Tr))
	s, _ = s.next(start(atom.Td))
	s, _ = s.next(text("Downstream Bonded Channels"))
	assert.Equal(t, tableUnknown, s.table)

	s, _ = s.next(start(atom.Table))
	s, _ = s.next(start(atom.Tr))
	s, _ = s.next(start(atom.Tr))
	s, _ = s.next(text("Downstream Bonded Channels"))
	assert.Equal(t, tableUnknown, s.table, "only the first row names the table")
}

func TestExtractResetsOnNewTable(t *testing.T) {
	events := []event{
		start(atom.Table), start(atom.Tr), text("Downstream Bonded Channels"),
		start(atom.Tr), start(atom.Td), text("Channel"),
		start(atom.Tr), start(atom.Td), text("7"), start(atom.Td), text("Locked"), start(atom.Td), text("QAM256"),
		end(atom.Table),
		start(atom.Table), start(atom.Tr), text("Something Else"),
		start(atom.Tr), start(atom.Tr), start(atom.Td), text("ignored"),
		end(atom.Table),
	}

	snap, err := extract(events)
	require.NoError(t, err)
	require.Len(t, snap.Downstream, 1)
	assert.Equal(t, DownstreamRecord{Channel: "7", Locked: "Locked", Modulation: "QAM256"}, snap.Downstream[0])
	assert.Empty(t, snap.Upstream)
}

func TestLeadingToken(t *testing.T) {
	assert.Equal(t, "0.6", leadingToken("0.6 dBmV"))
	assert.Equal(t, "15", leadingToken("15"))
	assert.Equal(t, "", leadingToken(""))
}

func TestParseUnit(t *testing.T) {
	v, err := parseUnit("549000000 Hz", 1000000)
	require.NoError(t, err)
	assert.InDelta(t, 549.0, v, 1e-9)

	v, err = parseUnit("6400 kHz", 1000)
	require.NoError(t, err)
	assert.InDelta(t, 6.4, v, 1e-9)

	_, err = parseUnit("6.4 MHz", 1000)
	assert.Error(t, err)
}
