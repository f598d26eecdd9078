package service

import (
	"context"
	"math"
	"strconv"

	"go.uber.org/zap"

	"codequery/internal/core"
	"codequery/internal/gateway"
	"codequery/internal/query"
)

// ExportMutator marks exported rows once the select has produced them.
// The select and the update are separate statements; rows deleted in
// between are simply not updated.
type ExportMutator struct {
	builder *query.Builder
}

func NewExportMutator(builder *query.Builder) *ExportMutator {
	return &ExportMutator{builder: builder}
}

// Apply updates the status of every selected row that carries an id and
// returns how many rows the database reported as updated. Update failures
// are logged and reported as zero marked rows; the rows are still returned
// to the caller. When the id column was added only to drive the update it is
// removed from the result afterwards.
func (m *ExportMutator) Apply(ctx context.Context, client gateway.Client, rs *core.ResultSet, stmt query.FullStatement) int64 {
	log := zap.S().Named("mutator")

	var marked int64
	ids := collectIDs(rs)
	if len(ids) > 0 {
		update, err := m.builder.MarkExported(ids)
		if err == nil {
			marked, err = client.Exec(ctx, update.SQL, update.Args...)
		}
		if err != nil {
			log.Errorw("failed to mark rows as exported", "ids", len(ids), "error", err)
			marked = 0
		} else {
			log.Infow("marked rows as exported", "ids", len(ids), "updated", marked)
		}
	}

	if stmt.StripID {
		rs.Without("id")
	}
	return marked
}

func collectIDs(rs *core.ResultSet) []int64 {
	ids := make([]int64, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		v, ok := row["id"]
		if !ok || v == nil {
			continue
		}
		id, ok := toInt64(v)
		if !ok {
			zap.S().Named("mutator").Warnw("skipping row with unusable id", "id", v)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	case []byte:
		id, err := strconv.ParseInt(string(n), 10, 64)
		return id, err == nil
	}
	return 0, false
}
