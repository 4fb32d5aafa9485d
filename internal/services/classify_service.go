package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-classify/internal/api"
	"github.com/miradorstack/mirador-classify/internal/cache"
	"github.com/miradorstack/mirador-classify/internal/engine"
	"github.com/miradorstack/mirador-classify/internal/metrics"
	"github.com/miradorstack/mirador-classify/internal/models"
	"github.com/miradorstack/mirador-classify/internal/patterns"
	"github.com/miradorstack/mirador-classify/internal/repo"
	"github.com/miradorstack/mirador-classify/internal/utils"
)

const defaultTopKeys = 10

// RecordStore is the snapshot store the service reads and publishes through.
type RecordStore interface {
	Snapshot() *repo.Snapshot
	Ingest(ctx context.Context, records []models.Record, replace bool) (*repo.Snapshot, error)
	ReloadDictionary(ctx context.Context, dict *patterns.Dictionary) (*repo.Snapshot, error)
}

// ClassifyService implements the gRPC ClassifyEngine service.
type ClassifyService struct {
	api.UnimplementedClassifyEngineServer

	logger    *slog.Logger
	store     RecordStore
	pipeline  *engine.FilterPipeline
	loader    patterns.Loader
	results   cache.Provider
	resultTTL time.Duration
	latencies *utils.LatencyTracker
	now       func() time.Time
}

// NewClassifyService constructs the service facade. loader may be nil, in
// which case ReloadPatterns only accepts inline dictionaries. A nil results
// cache disables filter caching.
func NewClassifyService(logger *slog.Logger, store RecordStore, pipeline *engine.FilterPipeline, loader patterns.Loader, results cache.Provider, resultTTL time.Duration) *ClassifyService {
	if logger == nil {
		logger = slog.Default()
	}
	if pipeline == nil {
		pipeline = engine.NewFilterPipeline(logger)
	}
	if results == nil {
		results = cache.NoopProvider{}
	}
	return &ClassifyService{
		logger:    logger,
		store:     store,
		pipeline:  pipeline,
		loader:    loader,
		results:   results,
		resultTTL: resultTTL,
		latencies: utils.NewLatencyTracker(1024),
		now:       time.Now,
	}
}

// IngestRecords classifies and publishes a batch. The response carries the
// newly annotated records.
func (s *ClassifyService) IngestRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "record store not configured")
	}
	var req api.IngestRequest
	if err := api.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snap, err := s.store.Ingest(ctx, req.Records, req.Replace)
	if err != nil {
		s.logger.Error("ingest failed", slog.Any("error", err))
		return nil, toStatus(err)
	}

	added := snap.Records[snap.Len()-len(req.Records):]
	return encode(api.RecordsResponse{
		SnapshotID:        snap.ID,
		DictionaryVersion: snap.Dictionary.Version(),
		Total:             snap.Len(),
		Records:           added,
	})
}

// EvaluateQuery runs a boolean query over the current snapshot. A malformed
// query is rejected unless the request asks for the literal fallback.
func (s *ClassifyService) EvaluateQuery(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "record store not configured")
	}
	var req api.QueryRequest
	if err := api.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snap := s.store.Snapshot()
	resp := api.RecordsResponse{SnapshotID: snap.ID, DictionaryVersion: snap.Dictionary.Version()}

	var (
		out []models.Record
		err error
	)
	if req.Fallback {
		out, err = engine.EvaluateOrLiteral(req.Query, snap.Records)
		resp.Fallback = err != nil
	} else {
		out, err = engine.Evaluate(req.Query, snap.Records)
		if err != nil {
			metrics.ObserveQuery(metrics.OutcomeError)
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	if resp.Fallback {
		metrics.ObserveQuery(metrics.OutcomeFallback)
		s.logger.Debug("query searched as literal", slog.String("query", req.Query), slog.Any("error", err))
	} else {
		metrics.ObserveQuery(metrics.OutcomeSuccess)
	}

	resp.Total = len(out)
	resp.Records = api.Truncate(out, req.Limit)
	return encode(resp)
}

// ApplyFilters narrows the current snapshot by the request criteria.
func (s *ClassifyService) ApplyFilters(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "record store not configured")
	}
	var req api.FilterRequest
	if err := api.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	criteria, err := req.Criteria(s.now())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snap := s.store.Snapshot()
	start := time.Now()
	out, cached, err := s.filter(ctx, snap, criteria)
	if err != nil {
		return nil, toStatus(err)
	}
	s.observe(time.Since(start))

	return encode(api.RecordsResponse{
		SnapshotID:        snap.ID,
		DictionaryVersion: snap.Dictionary.Version(),
		Total:             len(out),
		Records:           api.Truncate(out, req.Limit),
		Cached:            cached,
	})
}

// GetCounts tallies dictionary hits over the filtered snapshot. The request
// limit bounds the top-key lists.
func (s *ClassifyService) GetCounts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "record store not configured")
	}
	var req api.FilterRequest
	if err := api.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	criteria, err := req.Criteria(s.now())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snap := s.store.Snapshot()
	out, _, err := s.filter(ctx, snap, criteria)
	if err != nil {
		return nil, toStatus(err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultTopKeys
	}
	counts := patterns.Tally(out)
	return encode(api.CountsResponse{
		SnapshotID: snap.ID,
		Counts:     counts,
		TopSystems: patterns.TopKeys(counts.Systems, limit),
		TopUnits:   patterns.TopKeys(counts.Units, limit),
	})
}

// ReloadPatterns swaps in a new dictionary, either carried inline or re-read
// through the configured loader, and re-annotates every record.
func (s *ClassifyService) ReloadPatterns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "record store not configured")
	}
	var req api.ReloadRequest
	if err := api.Decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var dict *patterns.Dictionary
	switch {
	case req.Inline():
		dict = patterns.Load(s.logger, req.Systems, req.Units)
	case s.loader == nil:
		return nil, status.Error(codes.FailedPrecondition, "pattern loader not configured")
	default:
		var err error
		if dict, err = s.loader.LoadDictionary(ctx); err != nil {
			metrics.ObserveDictionaryReload(metrics.OutcomeError)
			s.logger.Error("pattern reload failed", slog.Any("error", err))
			return nil, toStatus(err)
		}
	}
	metrics.ObserveDictionaryReload(metrics.OutcomeSuccess)

	snap, err := s.store.ReloadDictionary(ctx, dict)
	if err != nil {
		s.logger.Error("dictionary swap failed", slog.Any("error", err))
		return nil, toStatus(err)
	}

	resp := api.ReloadResponse{
		SnapshotID:        snap.ID,
		DictionaryVersion: dict.Version(),
		Systems:           len(dict.Systems()),
		Units:             len(dict.Units()),
	}
	for _, skipped := range dict.Skipped() {
		resp.Skipped = append(resp.Skipped, skipped.String())
	}
	return encode(resp)
}

// HealthCheck returns the current health state.
func (s *ClassifyService) HealthCheck(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return encode(api.HealthResponse{Status: "NOT_SERVING"})
	}
	snap := s.store.Snapshot()
	return encode(api.HealthResponse{
		Status:            "SERVING",
		SnapshotID:        snap.ID,
		DictionaryVersion: snap.Dictionary.Version(),
		Records:           snap.Len(),
		UpdatedAt:         snap.UpdatedAt,
	})
}

// LatencyP95 returns the current p95 filter latency.
func (s *ClassifyService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// filter applies criteria to snap, consulting the result cache first. Cache
// entries are keyed by snapshot, so a new snapshot never sees stale results.
func (s *ClassifyService) filter(ctx context.Context, snap *repo.Snapshot, criteria models.FilterCriteria) ([]models.Record, bool, error) {
	key, err := resultKey(snap.ID, criteria)
	if err != nil {
		return nil, false, err
	}

	if data, err := s.results.Get(ctx, key); err == nil {
		var out []models.Record
		if err := json.Unmarshal(data, &out); err == nil {
			return out, true, nil
		}
		s.logger.Warn("discarding undecodable cached result", slog.String("key", key))
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("result cache read failed", slog.Any("error", err))
	}

	out, err := s.pipeline.Apply(criteria, snap.Records)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(out); err == nil {
		if err := s.results.Set(ctx, key, data, s.resultTTL); err != nil {
			s.logger.Warn("result cache write failed", slog.Any("error", err))
		}
	}
	return out, false, nil
}

func (s *ClassifyService) observe(d time.Duration) {
	s.latencies.Observe(d)
	if total := s.latencies.Total(); total%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("filter latency", slog.Duration("p95", p95), slog.Int("samples", s.latencies.Count()), slog.Int("total", total))
	}
}

func resultKey(snapshotID string, criteria models.FilterCriteria) (string, error) {
	data, err := json.Marshal(criteria)
	if err != nil {
		return "", utils.NewAppError("services.resultKey", "encode criteria", err)
	}
	sum := sha256.Sum256(data)
	return "filter:" + snapshotID + ":" + hex.EncodeToString(sum[:]), nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := api.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	switch utils.KindOf(err) {
	case utils.KindInvalid:
		return status.Error(codes.InvalidArgument, err.Error())
	case utils.KindUnavailable:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
