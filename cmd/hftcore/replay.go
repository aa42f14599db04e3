package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/valyala/fastjson"

	"hftcore/internal/engine"
	"hftcore/internal/venue"
	"hftcore/pkg/wire"
)

func newReplayCmd() *cobra.Command {
	var cfgPath string
	var tapePath string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Feed a recorded JSON tick tape through the engine and print final stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return replayMain(cfgPath, tapePath)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config YAML (defaults to built-in defaults)")
	cmd.Flags().StringVarP(&tapePath, "tape", "t", "", "path to a JSON array tick tape (required)")
	_ = cmd.MarkFlagRequired("tape")
	return cmd
}

// tickRecord is one entry of the replay tape: a decoded tick plus the
// sequence/instrument/timestamp header needed to build a wire frame.
type tickRecord struct {
	Sequence     uint64
	InstrumentID uint32
	ExchangeTSNs uint64
	BidPrice     float64
	AskPrice     float64
	BidSize      uint64
	AskSize      uint64
}

func loadTape(path string) ([]tickRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tape: %w", err)
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse tape: %w", err)
	}

	arr, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("tape must be a JSON array: %w", err)
	}

	out := make([]tickRecord, 0, len(arr))
	for _, item := range arr {
		out = append(out, tickRecord{
			Sequence:     item.GetUint64("seq"),
			InstrumentID: uint32(item.GetUint("instrument_id")),
			ExchangeTSNs: item.GetUint64("exchange_ts_ns"),
			BidPrice:     item.GetFloat64("bid"),
			AskPrice:     item.GetFloat64("ask"),
			BidSize:      item.GetUint64("bid_size"),
			AskSize:      item.GetUint64("ask_size"),
		})
	}
	return out, nil
}

func frameFromTick(r tickRecord) engine.FrameInput {
	f := wire.RawFrame{
		Sequence:     r.Sequence,
		ExchangeTSNs: r.ExchangeTSNs,
		Type:         wire.MessageTick,
		InstrumentID: r.InstrumentID,
		Payload: wire.EncodeTickPayload(wire.TickPayload{
			BidPrice: r.BidPrice,
			AskPrice: r.AskPrice,
			BidSize:  r.BidSize,
			AskSize:  r.AskSize,
		}),
	}
	raw := f.Encode()
	return engine.FrameInput{Frame: f, Raw: raw[:]}
}

func replayMain(cfgPath, tapePath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	tape, err := loadTape(tapePath)
	if err != nil {
		return err
	}

	eng := engine.New(*cfg, logger)
	if !eng.AddVenue("replay", venue.DefaultConfig(), 1.0, 1) {
		return fmt.Errorf("failed to register replay venue")
	}
	eng.Start()

	for _, r := range tape {
		eng.IngestFrame(frameFromTick(r))
	}

	// Give the ingress/execution threads a moment to drain the rings
	// before reading final stats.
	time.Sleep(50 * time.Millisecond)
	eng.Stop()

	stats := eng.Stats()
	logger.Info("replay complete",
		"records", humanize.Comma(int64(len(tape))),
		"frames_processed", humanize.Comma(int64(stats.FramesProcessed)),
		"fills_applied", humanize.Comma(int64(stats.FillsApplied)),
		"invalid_messages", humanize.Comma(int64(stats.Feed.InvalidMessages)),
	)
	return nil
}
