package main

import "sort"

// DownstreamRecord is one data row of the "Downstream Bonded Channels" table,
// as read positionally from the page. Cells missing from a malformed row are
// left empty.
type DownstreamRecord struct {
	Channel       string
	Locked        string
	Modulation    string
	ChannelID     string
	FrequencyMHz  *float64
	Power         string
	SNR           string
	Corrected     string
	Uncorrectable string
}

// UpstreamRecord is one data row of the "Upstream Bonded Channels" table.
type UpstreamRecord struct {
	Channel      string
	Locked       string
	Type         string
	ChannelID    string
	WidthMHz     *float64
	FrequencyMHz *float64
	Power        string
}

// Snapshot is everything extracted from a single status page.
type Snapshot struct {
	Model      string
	Downstream []DownstreamRecord
	Upstream   []UpstreamRecord
}

// DownstreamChannel holds the attributes of an active downstream channel.
// A nil attribute is unknown. Fields are declared in JSON key order so the
// state file is written with sorted keys.
type DownstreamChannel struct {
	ChannelID            *string  `json:"channel_id"`
	ErrorsCorrected      *string  `json:"errors_corrected"`
	ErrorsUncorrectables *string  `json:"errors_uncorrectables"`
	FrequencyMHz         *float64 `json:"frequency_mhz"`
	Modulation           *string  `json:"modulation"`
	PowerDBmV            *string  `json:"power_dbmv"`
	SNRDB                *string  `json:"snr_db"`
}

// UpstreamChannel holds the attributes of an upstream channel.
type UpstreamChannel struct {
	ChannelID    *string  `json:"channel_id"`
	FrequencyMHz *float64 `json:"frequency_mhz"`
	Locked       *string  `json:"locked"`
	Modulation   *string  `json:"modulation"`
	PowerDBmV    *string  `json:"power_dbmv"`
	WidthMHz     *float64 `json:"width_mhz"`
}

// ResultTree is the reconciled, keyed view of the modem status. It is also the
// document persisted as the baseline.
type ResultTree struct {
	Downstream map[int]DownstreamChannel `json:"downstream_channels"`
	Model      *string                   `json:"model"`
	Upstream   map[int]UpstreamChannel   `json:"upstream_channels"`
}

func (t *ResultTree) downstreamChannels() []int {
	channels := make([]int, 0, len(t.Downstream))
	for ch := range t.Downstream {
		channels = append(channels, ch)
	}
	sort.Ints(channels)
	return channels
}

func (t *ResultTree) upstreamChannels() []int {
	channels := make([]int, 0, len(t.Upstream))
	for ch := range t.Upstream {
		channels = append(channels, ch)
	}
	sort.Ints(channels)
	return channels
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
