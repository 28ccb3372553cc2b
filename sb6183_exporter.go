package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/log"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	exporterName = "sb6183_exporter"
	namespace    = "sb6183"
)

func main() {
	var (
		mode            = kingpin.Arg("mode", `"config" prints munin graph declarations, "serve" runs the Prometheus exporter. Without a mode, values are printed.`).Enum("config", "serve")
		listenAddress   = kingpin.Flag("web.listen-address", "Address to listen on for web interface and telemetry.").Default(":9624").OverrideDefaultFromEnvar("SB6183_EXPORTER_PORT").String()
		metricsPath     = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()
		clientScrapeURI = kingpin.Flag("client.scrape-uri", "URI of the modem status page.").Default("http://192.168.100.1/").OverrideDefaultFromEnvar("SB6183_EXPORTER_SCRAPEURI").String()
		clientTimeout   = kingpin.Flag("client.timeout", "Timeout for HTTP requests to the modem.").Default("30s").OverrideDefaultFromEnvar("SB6183_EXPORTER_CLIENTTIMEOUT").Duration()
		stateFile       = kingpin.Flag("state.file", "File holding the last complete channel layout.").OverrideDefaultFromEnvar("MUNIN_STATEFILE").String()
		dirtyConfig     = kingpin.Flag("munin.dirtyconfig", "Print values together with the config.").Default("false").OverrideDefaultFromEnvar("MUNIN_CAP_DIRTYCONFIG").Bool()
	)

	log.AddFlags(kingpin.CommandLine)
	kingpin.Version(version.Print(exporterName))
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if *mode == "serve" {
		serve(*listenAddress, *metricsPath, *clientScrapeURI, *clientTimeout, *stateFile)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *clientTimeout)
	defer cancel()

	code, err := runPlugin(ctx, pluginOptions{
		scrapeURI:   *clientScrapeURI,
		timeout:     *clientTimeout,
		stateFile:   *stateFile,
		dirtyConfig: *dirtyConfig,
		config:      *mode == "config",
	}, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	cancel()
	os.Exit(code)
}

func serve(listenAddress, metricsPath, scrapeURI string, timeout time.Duration, stateFile string) {
	log.Infoln("Starting", exporterName, version.Info())
	log.Infoln("Build context", version.BuildContext())

	exporter, err := NewExporter(scrapeURI, timeout, stateFile)
	if err != nil {
		log.Fatal(err)
	}
	prometheus.MustRegister(exporter)
	prometheus.MustRegister(version.NewCollector(exporterName))

	log.Infoln("Listening on", listenAddress)
	http.Handle(metricsPath, promhttp.Handler())
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
             <head><title>SB6183 Exporter</title></head>
             <body>
             <h1>SB6183 Exporter</h1>
             <p><a href='` + metricsPath + `'>Metrics</a></p>
             </body>
             </html>`))
	})
	log.Fatal(http.ListenAndServe(listenAddress, nil))
}
