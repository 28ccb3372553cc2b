package main

import "strconv"

// Only QAM256 downstream slots carry data; the modem lists unused slots with
// other modulations.
const activeDownstreamModulation = "QAM256"

// reconcile turns a snapshot into a ResultTree, keeping the channel keys of
// the previous baseline when the snapshot is missing a table. The result is
// complete only when both channel maps came from the snapshot itself. Either
// argument may be nil.
func reconcile(snap *Snapshot, prev *ResultTree) (*ResultTree, bool) {
	if snap == nil {
		snap = &Snapshot{}
	}
	if prev == nil {
		prev = &ResultTree{}
	}

	tree := &ResultTree{
		Model:      optionalString(snap.Model),
		Downstream: map[int]DownstreamChannel{},
		Upstream:   map[int]UpstreamChannel{},
	}
	if tree.Model == nil && prev.Model != nil {
		model := *prev.Model
		tree.Model = &model
	}

	complete := true

	for _, r := range snap.Downstream {
		if r.Modulation != activeDownstreamModulation {
			continue
		}
		channel, err := strconv.Atoi(r.Channel)
		if err != nil {
			continue
		}
		tree.Downstream[channel] = DownstreamChannel{
			Modulation:           optionalString(r.Modulation),
			ChannelID:            optionalString(r.ChannelID),
			FrequencyMHz:         r.FrequencyMHz,
			PowerDBmV:            optionalString(r.Power),
			SNRDB:                optionalString(r.SNR),
			ErrorsCorrected:      optionalString(r.Corrected),
			ErrorsUncorrectables: optionalString(r.Uncorrectable),
		}
	}
	if len(tree.Downstream) == 0 {
		complete = false
		for channel := range prev.Downstream {
			tree.Downstream[channel] = DownstreamChannel{}
		}
	}

	for _, r := range snap.Upstream {
		channel, err := strconv.Atoi(r.Channel)
		if err != nil {
			continue
		}
		tree.Upstream[channel] = UpstreamChannel{
			Modulation:   optionalString(r.Type),
			Locked:       optionalString(r.Locked),
			ChannelID:    optionalString(r.ChannelID),
			FrequencyMHz: r.FrequencyMHz,
			WidthMHz:     r.WidthMHz,
			PowerDBmV:    optionalString(r.Power),
		}
	}
	if len(tree.Upstream) == 0 {
		complete = false
		for channel := range prev.Upstream {
			tree.Upstream[channel] = UpstreamChannel{}
		}
	}

	return tree, complete
}
