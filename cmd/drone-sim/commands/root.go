package commands

import (
	"fmt"
	"log"
	"log/syslog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	logrussyslog "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/skycoin/skycoin/src/util/logging"
	"github.com/spf13/cobra"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/getdroned/drone/internal/metrics"
	"github.com/getdroned/drone/pkg/controller"
	"github.com/getdroned/drone/pkg/simnet"
	"github.com/getdroned/drone/pkg/wire"
)

var (
	metricsAddr  string
	syslogAddr   string
	tag          string
	logLevel     string
	logFile      string
	eventsDB     string
	message      string
	discoverWait time.Duration
	settle       time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "drone-sim [config.json]",
	Short: "Simulated overlay network of packet-forwarding drones",
	Run: func(_ *cobra.Command, args []string) {
		configFile := "config.json"
		if len(args) > 0 {
			configFile = args[0]
		}

		logger := logging.MustGetLogger(tag)

		lvl, err := logging.LevelFromString(logLevel)
		if err != nil {
			log.Fatal("Failed to parse log level: ", err)
		}
		logging.SetLevel(lvl)

		if syslogAddr != "" {
			hook, err := logrussyslog.NewSyslogHook("udp", syslogAddr, syslog.LOG_INFO, tag)
			if err != nil {
				logger.Fatalf("Unable to connect to syslog daemon on %v", syslogAddr)
			}
			logging.AddHook(hook)
		}

		if logFile != "" {
			logging.SetOutputTo(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    16, // megabytes
				MaxBackups: 10,
			})
		}

		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, nil); err != nil {
				logger.Println("Failed to start metrics API:", err)
			}
		}()

		conf, err := simnet.ParseConfig(configFile)
		if err != nil {
			logger.Fatalf("Failed to load config %s: %v", configFile, err)
		}

		store := controller.InMemoryEventStore()
		if eventsDB != "" {
			store, err = controller.BoltDBEventStore(eventsDB)
			if err != nil {
				logger.Fatalf("Failed to open event store %s: %v", eventsDB, err)
			}
		}
		defer store.Close() //nolint:errcheck

		network, err := simnet.Build(conf, store, metrics.NewPrometheus(tag))
		if err != nil {
			logger.Fatalf("Failed to build network: %v", err)
		}
		network.Start()

		runScenario(logger, network, conf)

		network.Shutdown(settle)
		printCounts(network.Controller().Counts())
	},
}

// runScenario drives a demonstration exchange: every client discovers the
// topology and sends one message to every server it can reach.
func runScenario(logger *logging.Logger, network *simnet.Network, conf *simnet.Config) {
	servers := make(map[wire.NodeID]bool, len(conf.Servers))
	for _, sc := range conf.Servers {
		servers[wire.NodeID(sc.ID)] = true
	}

	for _, cc := range conf.Clients {
		client, err := network.Host(wire.NodeID(cc.ID))
		if err != nil {
			logger.Fatalf("Missing client %d: %v", cc.ID, err)
		}

		routes := client.DiscoverRoutes(discoverWait)
		logger.Infof("client %d discovered %d routes", cc.ID, len(routes))

		for dest := range routes {
			if !servers[dest] {
				continue
			}

			session, err := client.SendMessage(dest, []byte(message))
			if err != nil {
				logger.Errorf("client %d -> server %d: %v", cc.ID, dest, err)
				continue
			}
			if err := client.WaitDelivered(session, 10*time.Second); err != nil {
				logger.Errorf("client %d -> server %d: %v", cc.ID, dest, err)
				continue
			}
			logger.Infof("client %d -> server %d: delivered", cc.ID, dest)
		}
	}
}

func printCounts(counts map[string]int) {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		fmt.Printf("%-20s %d\n", kind, counts[kind])
	}
}

func init() {
	rootCmd.Flags().StringVarP(&metricsAddr, "metrics", "m", ":2121", "address to bind metrics API to")
	rootCmd.Flags().StringVar(&syslogAddr, "syslog", "", "syslog server address. E.g. localhost:514")
	rootCmd.Flags().StringVar(&tag, "tag", "drone_sim", "logging tag")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "logging level")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "rotated log file path (disabled when empty)")
	rootCmd.Flags().StringVar(&eventsDB, "events-db", "", "bbolt database file for event records (in-memory when empty)")
	rootCmd.Flags().StringVar(&message, "message", "hello from the overlay", "message each client sends to each server")
	rootCmd.Flags().DurationVar(&discoverWait, "discover-wait", time.Second, "how long to collect flood responses")
	rootCmd.Flags().DurationVar(&settle, "settle", time.Second, "drain time before shutdown")
}

// Execute executes root CLI command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
