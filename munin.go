package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	graphCategory = "x-wan-arris"
	unknownValue  = "U"
)

// graph is one munin multigraph. Exactly one of downstream and upstream is set.
type graph struct {
	name    string
	field   string
	title   string
	vlabel  string
	warning string
	// derive marks monotonically increasing error counters, graphed per minute.
	derive bool

	downstream func(DownstreamChannel) string
	upstream   func(UpstreamChannel) string
}

var graphs = []graph{
	{
		name:       "arris_downsnr",
		field:      "downsnr",
		title:      "[2] Downstream Signal to Noise (dB)",
		vlabel:     "db (decibels)",
		warning:    "33:",
		downstream: func(c DownstreamChannel) string { return formatString(c.SNRDB) },
	},
	{
		name:       "arris_downfreq",
		field:      "downfreq",
		title:      "[6] Downstream Channel frequency",
		vlabel:     "MHz",
		downstream: func(c DownstreamChannel) string { return formatFloat(c.FrequencyMHz) },
	},
	{
		name:       "arris_downpwr",
		field:      "downpwr",
		title:      "[1] Downstream Power Level",
		vlabel:     "dBmV",
		warning:    "-7:8",
		downstream: func(c DownstreamChannel) string { return formatString(c.PowerDBmV) },
	},
	{
		name:       "arris_downcorrected",
		field:      "downcorrected",
		title:      "[3] Downstream Corrected Errors",
		vlabel:     "Blocks per Minute",
		derive:     true,
		downstream: func(c DownstreamChannel) string { return formatString(c.ErrorsCorrected) },
	},
	{
		name:       "arris_downuncorrected",
		field:      "downuncorrected",
		title:      "[4] Downstream Uncorrected Errors",
		vlabel:     "Blocks per Minute",
		derive:     true,
		downstream: func(c DownstreamChannel) string { return formatString(c.ErrorsUncorrectables) },
	},
	{
		name:     "arris_uppwr",
		field:    "uppwr",
		title:    "[5] Upstream Power",
		vlabel:   "dBmV",
		warning:  "35:49",
		upstream: func(c UpstreamChannel) string { return formatString(c.PowerDBmV) },
	},
	{
		name:     "arris_upfreq",
		field:    "upfreq",
		title:    "[7] Upstream Frequency",
		vlabel:   "MHz",
		upstream: func(c UpstreamChannel) string { return formatFloat(c.FrequencyMHz) },
	},
}

// series is one munin field of a graph.
type series struct {
	field string
	label string
	value string
}

func (g graph) series(tree *ResultTree) []series {
	var out []series
	if g.downstream != nil {
		for _, ch := range tree.downstreamChannels() {
			c := tree.Downstream[ch]
			out = append(out, series{
				field: g.field + strconv.Itoa(ch),
				label: channelLabel(ch, c.ChannelID),
				value: g.downstream(c),
			})
		}
	}
	if g.upstream != nil {
		for _, ch := range tree.upstreamChannels() {
			c := tree.Upstream[ch]
			out = append(out, series{
				field: g.field + strconv.Itoa(ch),
				label: channelLabel(ch, c.ChannelID),
				value: g.upstream(c),
			})
		}
	}
	return out
}

// channelLabel names a channel by its modem channel ID, or by its table
// position when the ID is unknown.
func channelLabel(channel int, channelID *string) string {
	if channelID == nil || *channelID == "" {
		return "Channel " + strconv.Itoa(channel)
	}
	return "Channel " + *channelID
}

func formatString(v *string) string {
	if v == nil || *v == "" {
		return unknownValue
	}
	return *v
}

func formatFloat(v *float64) string {
	if v == nil {
		return unknownValue
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// writeConfig prints the graph declarations.
func writeConfig(w io.Writer, tree *ResultTree) error {
	model := "Modem"
	if tree.Model != nil && *tree.Model != "" {
		model = *tree.Model
	}

	bw := bufio.NewWriter(w)
	for _, g := range graphs {
		fmt.Fprintf(bw, "multigraph %s\n", g.name)
		fmt.Fprintf(bw, "graph_title Arris %s %s\n", model, g.title)
		fmt.Fprintf(bw, "graph_vlabel %s\n", g.vlabel)
		fmt.Fprintf(bw, "graph_category %s\n", graphCategory)
		if g.derive {
			fmt.Fprintln(bw, "graph_scale no")
			fmt.Fprintln(bw, "graph_period minute")
		}
		for _, s := range g.series(tree) {
			fmt.Fprintf(bw, "%s.label %s\n", s.field, s.label)
			if g.warning != "" {
				fmt.Fprintf(bw, "%s.warning %s\n", s.field, g.warning)
			}
			if g.derive {
				fmt.Fprintf(bw, "%s.type DERIVE\n", s.field)
				fmt.Fprintf(bw, "%s.min 0\n", s.field)
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// writeValues prints one value per channel and graph, U where unknown.
func writeValues(w io.Writer, tree *ResultTree) error {
	bw := bufio.NewWriter(w)
	for _, g := range graphs {
		fmt.Fprintf(bw, "multigraph %s\n", g.name)
		for _, s := range g.series(tree) {
			fmt.Fprintf(bw, "%s.value %s\n", s.field, s.value)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
