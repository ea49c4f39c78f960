package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/utils/async"
	"github.com/stocklens/newsrag/pkg/utils/errutil"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"github.com/stocklens/newsrag/pkg/utils/safe"
)

const maxRequestBody = 1 << 20

type searchRequest struct {
	Query            string                  `json:"query"`
	PortfolioContext *model.PortfolioContext `json:"portfolioContext,omitempty"`
	Filters          *searchFilters          `json:"filters,omitempty"`
	TopK             int                     `json:"topK"`
}

type searchFilters struct {
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	MinRelevance *float64 `json:"minRelevance,omitempty"`
}

func (req *searchRequest) toQuery() model.Query {
	q := model.Query{
		Text:      req.Query,
		Portfolio: req.PortfolioContext,
		TopK:      req.TopK,
	}
	if f := req.Filters; f != nil {
		q.MinRelevance = f.MinRelevance
		if f.StartDate != "" || f.EndDate != "" {
			q.DateRange = &model.DateRange{Start: f.StartDate, End: f.EndDate}
		}
	}
	return q
}

func searchHandler(uc SearchUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req searchRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, model.NewValidationError("body", "request body must be a JSON object",
				goerr.V("cause", err.Error())))
			return
		}

		result, err := uc.Search(ctx, req.toQuery())
		if err != nil {
			errutil.HandleHTTP(ctx, w, err)
			return
		}

		writeJSON(ctx, w, http.StatusOK, NewSearchResponse(result))
	}
}

// ingestTrigger starts one ingestion run in the background. A second request while a run is in
// flight is rejected.
type ingestTrigger struct {
	ingester Ingester
	runner   *async.Runner
	running  atomic.Bool
}

func (t *ingestTrigger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !t.running.CompareAndSwap(false, true) {
		writeJSON(ctx, w, http.StatusConflict, map[string]string{
			"error":   "INGESTION_RUNNING",
			"message": "an ingestion run is already in progress",
		})
		return
	}

	t.runner.Dispatch(ctx, "ingest", func(ctx context.Context) error {
		defer t.running.Store(false)
		report, err := t.ingester.RunIngestion(ctx)
		if err != nil {
			return goerr.Wrap(err, "triggered ingestion failed")
		}
		logging.From(ctx).Info("triggered ingestion completed", "report", report)
		return nil
	})

	writeJSON(ctx, w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func healthHandler(probe StoreProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if probe == nil {
			writeJSON(ctx, w, http.StatusOK, map[string]any{"status": "ok"})
			return
		}

		count, err := probe.Count(ctx)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, map[string]any{"status": "ok", "records": count})
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}
