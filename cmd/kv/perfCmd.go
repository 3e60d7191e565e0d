package kv

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/akvlib/akv/cmd/util"
	"github.com/akvlib/akv/lib/resp"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Pipelined performance test against a server",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}

	perfRequests    = 10000
	perfPipeline    = 100
	perfValueSizeB  = 64
	perfKeyPrefix   = "__akv_perf"
	perfShowMetrics = false
)

func init() {
	// add flags
	key := "requests"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Total number of commands to send"))
	key = "pipeline"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many commands to keep in flight at once"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("Size of the value for each SET (in bytes)"))
	key = "dump-metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the client's internal counters after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfRequests = viper.GetInt("requests")
	perfPipeline = viper.GetInt("pipeline")
	perfValueSizeB = viper.GetInt("value-size")
	perfShowMetrics = viper.GetBool("dump-metrics")

	if perfPipeline < 1 {
		perfPipeline = 1
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Pipelined performance test")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Requests: %d, pipeline depth: %d, value size: %d bytes\n\n",
		perfRequests, perfPipeline, perfValueSizeB)

	conn := session.Conn()
	value := strings.Repeat("x", perfValueSizeB)
	latency := gometrics.NewTimer()
	defer latency.Stop()

	var (
		wg       sync.WaitGroup
		errCount int
		errMu    sync.Mutex
	)

	start := time.Now()
	for sent := 0; sent < perfRequests; sent += perfPipeline {
		batch := perfPipeline
		if rest := perfRequests - sent; rest < batch {
			batch = rest
		}

		wg.Add(batch)
		for j := 0; j < batch; j++ {
			key := fmt.Sprintf("%s:%d", perfKeyPrefix, (sent+j)%1024)
			cmd := resp.AppendCommand(nil, "SET", key, value)
			submitted := time.Now()

			conn.Send(cmd,
				func(resp.Reply) {
					latency.UpdateSince(submitted)
					wg.Done()
				},
				func(error) {
					errMu.Lock()
					errCount++
					errMu.Unlock()
					wg.Done()
				},
			)
		}
		wg.Wait()
	}
	elapsed := time.Since(start)

	// cleanup
	keys := []string{"DEL"}
	for i := 0; i < 1024 && i < perfRequests; i++ {
		keys = append(keys, fmt.Sprintf("%s:%d", perfKeyPrefix, i))
	}
	if _, err := session.Do(keys...); err != nil {
		fmt.Printf("cleanup failed: %v\n", err)
	}

	ps := latency.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("Completed %d requests in %v (%d errors)\n", perfRequests, elapsed, errCount)
	fmt.Printf("Throughput : %.0f req/sec\n", float64(perfRequests)/elapsed.Seconds())
	fmt.Printf("Latency    : mean %.2fms, p50 %.2fms, p95 %.2fms, p99 %.2fms\n",
		latency.Mean()/float64(time.Millisecond),
		ps[0]/float64(time.Millisecond),
		ps[1]/float64(time.Millisecond),
		ps[2]/float64(time.Millisecond))

	if perfShowMetrics {
		fmt.Println("\nClient counters:")
		metrics.WritePrometheus(os.Stdout, false)
	}
	return nil
}
