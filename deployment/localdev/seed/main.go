package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-classify/internal/api"
	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/utils"
)

// sampleRecords returns a small dated batch covering every match group.
func sampleRecords(now time.Time) []models.Record {
	day := func(offset int) string {
		return now.AddDate(0, 0, -offset).Format(time.DateOnly)
	}
	return []models.Record{
		{
			Date:        day(1),
			Location:    "Odesa",
			MessageURL:  "https://t.me/localdev/101",
			MessageText: "Russian Shahed drones struck a residential building in Odesa overnight, civilians killed.",
			Entities:    "Shahed-136, Odesa",
		},
		{
			Date:        day(2),
			Location:    "Kherson",
			MessageURL:  "https://t.me/localdev/102",
			MessageText: "Lancet loitering munition hit an ambulance near Kherson.",
		},
		{
			Date:        day(3),
			Location:    "Bakhmut",
			MessageURL:  "https://t.me/localdev/103",
			MessageText: "Ukrainian 93rd Brigade reports artillery duel near Bakhmut, no casualties.",
		},
		{
			Date:        day(10),
			Location:    "Kyiv",
			MessageText: "Air raid alert lifted in Kyiv.",
		},
	}
}

func main() {
	addr := flag.String("addr", "localhost:50052", "classification service address")
	query := flag.String("query", "shahed OR lancet", "query used for the demo filter")
	flag.Parse()

	logger := utils.NewLogger(os.Stderr, "info", false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Error("dial failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer conn.Close()
	client := api.NewClassifyEngineClient(conn)

	ingest, err := api.Encode(api.IngestRequest{Records: sampleRecords(time.Now()), Replace: true})
	if err != nil {
		logger.Error("encode records", slog.Any("error", err))
		os.Exit(1)
	}
	if !call(ctx, logger, client, api.MethodIngestRecords, ingest) {
		os.Exit(1)
	}

	filter, err := api.Encode(api.FilterRequest{Query: *query, DatePreset: "last7days"})
	if err != nil {
		logger.Error("encode filter", slog.Any("error", err))
		os.Exit(1)
	}
	if !call(ctx, logger, client, api.MethodApplyFilters, filter) || !call(ctx, logger, client, api.MethodGetCounts, filter) {
		os.Exit(1)
	}
}

func call(ctx context.Context, logger *slog.Logger, client *api.ClassifyEngineClient, method string, in *structpb.Struct, opts ...grpc.CallOption) bool {
	start := time.Now()
	out, err := client.Call(ctx, method, in, opts...)
	if err != nil {
		logger.Error("call failed", slog.String("method", method), slog.Any("error", err))
		return false
	}
	fields := out.GetFields()
	logger.Info("call ok",
		slog.String("method", method),
		slog.String("snapshot", fields["snapshot_id"].GetStringValue()),
		slog.Float64("total", fields["total"].GetNumberValue()),
		slog.Duration("took", time.Since(start)))
	return true
}
