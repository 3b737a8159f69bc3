package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/go-guard/v1/guard"
	"github.com/mirkobrombin/go-guard/v1/lock"
	"github.com/mirkobrombin/go-guard/v1/metrics"
)

var (
	concurrency = flag.Int("c", 50, "Number of concurrent workers")
	increments  = flag.Int("n", 100000, "Increments per worker")
	locker      = flag.String("l", "mutex", "Locker type: mutex, chan, sem")
)

func main() {
	flag.Parse()

	reg := metrics.NewRegistry()
	metrics.RegisterGuardMetrics(reg)

	var opts []guard.Option[int64]
	switch *locker {
	case "mutex":
	case "chan":
		opts = append(opts, guard.WithLocker[int64](lock.NewMutex()))
	case "sem":
		opts = append(opts, guard.WithLocker[int64](lock.NewSemaphore()))
	default:
		log.Fatalf("unknown locker type %q", *locker)
	}
	g := guard.New[int64](0, opts...)

	log.Printf("Starting benchmark: %d workers x %d increments, locker=%s", *concurrency, *increments, *locker)
	start := time.Now()

	eg, _ := errgroup.WithContext(context.Background())
	for i := 0; i < *concurrency; i++ {
		eg.Go(func() error {
			for j := 0; j < *increments; j++ {
				g.With(func(v *int64) { *v++ })
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Fatalf("benchmark failed: %v", err)
	}
	elapsed := time.Since(start)

	total := guard.Apply(g, func(v *int64) int64 { return *v })
	want := int64(*concurrency) * int64(*increments)
	if total != want {
		log.Fatalf("lost updates: got %d, want %d", total, want)
	}

	ops := float64(want)
	log.Printf("Finished in %v", elapsed)
	log.Printf("Throughput: %.2f ops/s", ops/elapsed.Seconds())
	log.Printf("Avg latency: %.2f ns", elapsed.Seconds()/ops*1e9)

	mfs, err := reg.Gather()
	if err != nil {
		log.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "guard_contention_total" {
			for _, m := range mf.GetMetric() {
				log.Printf("Contended acquisitions: %.0f", m.GetCounter().GetValue())
			}
		}
	}
}
