package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/log"
)

var (
	channelLabelNames = []string{"channel"}
	modelLabelNames   = []string{"model"}
)

func newChannelMetric(subsystemName, metricName, docString string, extraLabels ...string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemName, metricName), docString, append(channelLabelNames, extraLabels...), nil)
}

type downstreamMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(DownstreamChannel) (float64, error)
}

type upstreamMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(UpstreamChannel) (float64, error)
}

var (
	targetUpMetric  = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "up"), "Was the last scrape of the modem successful.", nil, nil)
	modemInfoMetric = prometheus.NewDesc(prometheus.BuildFQName(namespace, "modem", "info"), "Modem model number.", modelLabelNames, nil)

	downstreamChannelMetrics = []downstreamMetric{
		{
			desc:      newChannelMetric("downstream", "snr_db", "Downstream Signal to Noise Ratio", "channel_id"),
			valueType: prometheus.GaugeValue,
			value:     func(c DownstreamChannel) (float64, error) { return parseValue(c.SNRDB) },
		},
		{
			desc:      newChannelMetric("downstream", "center_frequency_hz", "Downstream Center Frequency", "channel_id"),
			valueType: prometheus.GaugeValue,
			value:     func(c DownstreamChannel) (float64, error) { return scaleValue(c.FrequencyMHz, 1e6), nil },
		},
		{
			desc:      newChannelMetric("downstream", "receive_level_dbmv", "Downstream Receive Level", "channel_id"),
			valueType: prometheus.GaugeValue,
			value:     func(c DownstreamChannel) (float64, error) { return parseValue(c.PowerDBmV) },
		},
		{
			desc:      newChannelMetric("downstream", "codewords_corrected_total", "Downstream Corrected Codewords", "channel_id"),
			valueType: prometheus.CounterValue,
			value:     func(c DownstreamChannel) (float64, error) { return parseValue(c.ErrorsCorrected) },
		},
		{
			desc:      newChannelMetric("downstream", "codewords_uncorrectable_total", "Downstream Uncorrectable Codewords", "channel_id"),
			valueType: prometheus.CounterValue,
			value:     func(c DownstreamChannel) (float64, error) { return parseValue(c.ErrorsUncorrectables) },
		},
	}

	upstreamChannelMetrics = []upstreamMetric{
		{
			desc:      newChannelMetric("upstream", "locked", "Upstream Lock Status", "channel_id"),
			valueType: prometheus.GaugeValue,
			value:     func(c UpstreamChannel) (float64, error) { return lockedValue(c.Locked), nil },
		},
		{
			desc:      newChannelMetric("upstream", "center_frequency_hz", "Upstream Center Frequency", "channel_id"),
			valueType: prometheus.GaugeValue,
			value:     func(c UpstreamChannel) (float64, error) { return scaleValue(c.FrequencyMHz, 1e6), nil },
		},
		{
			desc:      newChannelMetric("upstream", "width_hz", "Upstream Width", "channel_id"),
			valueType: prometheus.GaugeValue,
			value:     func(c UpstreamChannel) (float64, error) { return scaleValue(c.WidthMHz, 1e6), nil },
		},
		{
			desc:      newChannelMetric("upstream", "transmit_level_dbmv", "Upstream Transmit Level", "channel_id"),
			valueType: prometheus.GaugeValue,
			value:     func(c UpstreamChannel) (float64, error) { return parseValue(c.PowerDBmV) },
		},
	}
)

// Unknown attributes are exported as NaN so a channel's series never disappear.
func parseValue(v *string) (float64, error) {
	if v == nil || *v == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(*v, 64)
}

// channelIDLabel is empty while the channel ID is unknown.
func channelIDLabel(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func scaleValue(v *float64, factor float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v * factor
}

func lockedValue(v *string) float64 {
	switch {
	case v == nil:
		return math.NaN()
	case *v == "Locked":
		return 1
	default:
		return 0
	}
}

// Exporter collects modem channel statistics for Prometheus. It keeps its own
// baseline so channels stay exported across failed scrapes.
type Exporter struct {
	fetcher   *fetcher
	stateFile string
	baseline  *ResultTree
	mutex     sync.Mutex

	totalScrapes          prometheus.Counter
	parseFailures         *prometheus.CounterVec
	clientRequestCount    *prometheus.CounterVec
	clientRequestDuration *prometheus.HistogramVec
}

// NewExporter returns an Exporter scraping uri. The baseline is seeded from
// stateFile when it can be read.
func NewExporter(uri string, timeout time.Duration, stateFile string) (*Exporter, error) {
	clientRequestCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exporter_client_requests_total",
		Help:      "HTTP requests to the modem",
	}, []string{"code", "method"})

	clientRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "exporter_client_request_duration_seconds",
		Help:      "Histogram of modem HTTP request latencies.",
	}, []string{"code", "method"})

	transport := promhttp.InstrumentRoundTripperCounter(clientRequestCount,
		promhttp.InstrumentRoundTripperDuration(clientRequestDuration, http.DefaultTransport))

	baseline, err := loadState(stateFile)
	if err != nil {
		if !errors.Is(err, errNoState) {
			log.Warnln("Ignoring state file:", err)
		}
		baseline = nil
	}

	return &Exporter{
		fetcher:   newFetcher(uri, timeout, transport),
		stateFile: stateFile,
		baseline:  baseline,
		totalScrapes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exporter_scrapes_total",
			Help:      "Current total modem scrapes.",
		}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exporter_parse_errors_total",
			Help:      "Number of errors while parsing the channel tables.",
		}, []string{"table"}),
		clientRequestCount:    clientRequestCount,
		clientRequestDuration: clientRequestDuration,
	}, nil
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range downstreamChannelMetrics {
		ch <- m.desc
	}
	for _, m := range upstreamChannelMetrics {
		ch <- m.desc
	}

	ch <- targetUpMetric
	ch <- modemInfoMetric
	ch <- e.totalScrapes.Desc()
	e.parseFailures.Describe(ch)
	e.clientRequestCount.Describe(ch)
	e.clientRequestDuration.Describe(ch)
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	up := e.scrape(ch)
	ch <- prometheus.MustNewConstMetric(targetUpMetric, prometheus.GaugeValue, up)

	ch <- e.totalScrapes
	e.parseFailures.Collect(ch)
	e.clientRequestCount.Collect(ch)
	e.clientRequestDuration.Collect(ch)
}

func (e *Exporter) scrape(ch chan<- prometheus.Metric) (up float64) {
	e.totalScrapes.Inc()

	snap, err := poll(context.Background(), e.fetcher)
	var perr *parseError
	switch {
	case errors.As(err, &perr):
		e.parseFailures.WithLabelValues(perr.table.String()).Inc()
	case err == nil:
		up = 1
	}

	tree, complete := reconcile(snap, e.baseline)
	if complete {
		e.baseline = tree
		if err := saveState(e.stateFile, tree); err != nil && !errors.Is(err, errNoState) {
			log.Errorln("Writing state file:", err)
		}
	}

	if tree.Model != nil {
		ch <- prometheus.MustNewConstMetric(modemInfoMetric, prometheus.GaugeValue, 1, *tree.Model)
	}

	for _, channel := range tree.downstreamChannels() {
		channelLabel := fmt.Sprintf("%02d", channel)
		c := tree.Downstream[channel]
		for _, metric := range downstreamChannelMetrics {
			value, err := metric.value(c)
			if err != nil {
				log.Errorln(err)
				e.parseFailures.WithLabelValues(tableDownstream.String()).Inc()
				value = math.NaN()
			}
			ch <- prometheus.MustNewConstMetric(metric.desc, metric.valueType, value, channelLabel, channelIDLabel(c.ChannelID))
		}
	}

	for _, channel := range tree.upstreamChannels() {
		channelLabel := fmt.Sprintf("%02d", channel)
		c := tree.Upstream[channel]
		for _, metric := range upstreamChannelMetrics {
			value, err := metric.value(c)
			if err != nil {
				log.Errorln(err)
				e.parseFailures.WithLabelValues(tableUpstream.String()).Inc()
				value = math.NaN()
			}
			ch <- prometheus.MustNewConstMetric(metric.desc, metric.valueType, value, channelLabel, channelIDLabel(c.ChannelID))
		}
	}

	return up
}
