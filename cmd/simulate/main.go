package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"livepulse-service/logger"
	"livepulse-service/models"
	"livepulse-service/simulation"
)

var (
	seed       int64    // Seed for room generation and tick randomness
	ticks      int      // Number of ticks to run
	triggers   []string // event[@room] triggers applied before the first tick
	eventsFile string   // Optional YAML event catalog
	logLevel   string   // Log verbosity level
)

var rootCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the live-commerce simulation headless and print agent logs as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.SetLevel(logLevel); err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		return runSimulation(cmd.Context(), cmd.OutOrStdout())
	},
}

// jsonLines 按行输出 JSON 帧
type jsonLines struct {
	enc *json.Encoder
}

type frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (j jsonLines) PublishSnapshot([]models.Room, models.GlobalStats) {}

func (j jsonLines) PublishLog(entry models.AgentLog) {
	j.write("agent_log", entry)
}

func (j jsonLines) write(kind string, data interface{}) {
	if err := j.enc.Encode(frame{Type: kind, Data: data}); err != nil {
		logger.Errorf("[Simulate] Failed to write %s: %v", kind, err)
	}
}

func runSimulation(ctx context.Context, out io.Writer) error {
	catalog := simulation.DefaultCatalog()
	if eventsFile != "" {
		loaded, err := simulation.LoadCatalog(eventsFile)
		if err != nil {
			return err
		}
		catalog = loaded
	}

	sink := jsonLines{enc: json.NewEncoder(out)}
	sim := simulation.New(simulation.Options{
		Seed:      seed,
		Catalog:   catalog,
		Publisher: sink,
	})

	for _, t := range triggers {
		eventID, roomID := parseTrigger(t)
		if _, err := sim.TriggerEvent(ctx, eventID, roomID); err != nil {
			return fmt.Errorf("trigger %q: %w", t, err)
		}
	}

	for i := 0; i < ticks; i++ {
		if err := sim.Engine().Step(ctx); err != nil {
			logger.Errorf("[Simulate] Tick %d failed: %v", i+1, err)
		}
	}

	sink.write("global_stats", sim.Stats())
	return nil
}

// parseTrigger 拆分 event@room，room 为空时随机选择
func parseTrigger(s string) (eventID, roomID string) {
	eventID, roomID, _ = strings.Cut(s, "@")
	return strings.TrimSpace(eventID), strings.TrimSpace(roomID)
}

func init() {
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for random generation (0 = time-based)")
	rootCmd.Flags().IntVar(&ticks, "ticks", 10, "Number of ticks to run")
	rootCmd.Flags().StringArrayVar(&triggers, "trigger", nil, "Event to trigger before ticking, as event_id[@room_id] (repeatable)")
	rootCmd.Flags().StringVar(&eventsFile, "events-file", "", "YAML event catalog (defaults to built-in events)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
