package api

import (
	"net/http"
	"time"

	"github.com/snapgrab/snapgrab/internal/requestlog"
)

// HandleListResolutionLogs handles GET /api/v1/resolution-logs.
// Query params: from, to (RFC3339Nano), limit, offset, platform,
// outcome, error_kind, source_host, cache_hit.
func HandleListResolutionLogs(repo *requestlog.Repo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pg, ok := parsePaginationOrWriteInvalid(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		f := requestlog.ListFilter{
			Platform:   q.Get("platform"),
			Outcome:    q.Get("outcome"),
			ErrorKind:  q.Get("error_kind"),
			SourceHost: q.Get("source_host"),
			Limit:      pg.Limit,
			Offset:     pg.Offset,
		}

		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				writeInvalidArgument(w, "from: invalid RFC3339 timestamp")
				return
			}
			f.After = t.UnixNano()
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				writeInvalidArgument(w, "to: invalid RFC3339 timestamp")
				return
			}
			f.Before = t.UnixNano()
		}
		if f.After > 0 && f.Before > 0 && f.After >= f.Before {
			writeInvalidArgument(w, "from: must be before to")
			return
		}

		cacheHit, ok := parseBoolQueryOrWriteInvalid(w, r, "cache_hit")
		if !ok {
			return
		}
		if cacheHit != nil {
			n := 0
			if *cacheHit {
				n = 1
			}
			f.CacheHit = &n
		}

		rows, err := repo.List(f)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
			return
		}

		items := make([]logListItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, toLogListItem(row))
		}

		WriteJSON(w, http.StatusOK, PageResponse[logListItem]{
			Items:  items,
			Total:  len(items),
			Limit:  pg.Limit,
			Offset: pg.Offset,
		})
	})
}

// HandleGetResolutionLog handles GET /api/v1/resolution-logs/{log_id}.
func HandleGetResolutionLog(repo *requestlog.Repo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logID, ok := requireUUIDPathParam(w, r, "log_id", "log_id")
		if !ok {
			return
		}

		row, err := repo.GetByID(logID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
			return
		}
		if row == nil {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "not found")
			return
		}

		WriteJSON(w, http.StatusOK, toLogListItem(*row))
	})
}

// --- Response types ---

type logListItem struct {
	ID          string `json:"id"`
	Ts          string `json:"ts"`
	ClientIP    string `json:"client_ip"`
	SourceURL   string `json:"source_url"`
	SourceHost  string `json:"source_host"`
	Platform    string `json:"platform"`
	Fingerprint string `json:"fingerprint"`
	Method      string `json:"method"`
	Outcome     string `json:"outcome"`
	ErrorKind   string `json:"error_kind,omitempty"`
	CacheHit    bool   `json:"cache_hit"`
	ProxyUsed   string `json:"proxy_used,omitempty"`
	Attempts    int    `json:"attempts"`
	DurationMs  int64  `json:"duration_ms"`
}

func toLogListItem(row requestlog.LogRow) logListItem {
	return logListItem{
		ID:          row.ID,
		Ts:          time.Unix(0, row.TsNs).UTC().Format(time.RFC3339Nano),
		ClientIP:    row.ClientIP,
		SourceURL:   row.SourceURL,
		SourceHost:  row.SourceHost,
		Platform:    row.Platform,
		Fingerprint: row.Fingerprint,
		Method:      row.Method,
		Outcome:     row.Outcome,
		ErrorKind:   row.ErrorKind,
		CacheHit:    row.CacheHit,
		ProxyUsed:   row.ProxyUsed,
		Attempts:    row.Attempts,
		DurationMs:  row.DurationNs / 1e6,
	}
}
