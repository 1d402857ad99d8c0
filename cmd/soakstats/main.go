package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brensch/soak/historydb"
)

func main() {
	dirs := flag.String("history-dir", getEnvOrDefault("SOAK_HISTORY_DIR", "history"), "Comma-separated directories holding history Parquet files")
	timeout := flag.Duration("timeout", 30*time.Second, "Query timeout")
	flag.Parse()

	db, err := historydb.Open(strings.Split(*dirs, ","))
	if err != nil {
		log.Fatalf("Failed to open history: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runs, err := historydb.Runs(ctx, db)
	if err != nil {
		log.Fatalf("Failed to query runs: %v", err)
	}
	labels, err := historydb.Labels(ctx, db)
	if err != nil {
		log.Fatalf("Failed to query labels: %v", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTURNS\tFALLBACKS\tTRUNCATED\tMAX_US\tOWN\tENEMY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n", r.RunID, r.Turns, r.Fallbacks, r.Truncations, r.MaxElapsed, r.FinalOwn, r.FinalEnemy)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "LABEL\tCOUNT\tAVG_DELTA\tAVG_SWING")
	for _, l := range labels {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", l.Label, l.Count, l.AvgDelta, l.AvgSwing)
	}
	tw.Flush()
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
