package stats

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const megabyte = 1 << 20

// Enable starts a goroutine that periodically logs process-level runtime
// statistics. When the context is cancelled the current Prometheus metric
// values are dumped to dumpPath, so a crashed or stopped node leaves a last
// snapshot of its counters behind.
func Enable(ctx context.Context, interval time.Duration, dumpPath string) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logRuntimeStats()
			case <-ctx.Done():
				if err := DumpMetrics(dumpPath); err != nil {
					log.WithError(err).Warn("dumping metrics snapshot")
				}
				return
			}
		}
	}()
}

func logRuntimeStats() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.WithFields(log.Fields{
		"heap_mb":    memStats.HeapAlloc / megabyte,
		"total_mb":   memStats.TotalAlloc / megabyte,
		"goroutines": runtime.NumGoroutine(),
	}).Info("runtime stats")
}

// DumpMetrics writes the current values of all the registered Prometheus
// metrics to the given file in text exposition format.
func DumpMetrics(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	writer := bufio.NewWriter(file)
	for _, f := range families {
		if _, err := writer.WriteString(f.String() + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}
