package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"ChessSync/internal/model"
	"ChessSync/internal/service"
)

// detectResult 与 HTTP /detect 的响应结构一致
type detectResult struct {
	WorkUnits  []model.WorkUnit `json:"work_units,omitempty"`
	SkipReason string           `json:"skip_reason,omitempty"`
}

// writeResult json 模式原样输出结构体，text 模式输出便于人读的摘要
func writeResult(w io.Writer, format string, v any) error {
	if format == "json" {
		if units, ok := v.([]model.WorkUnit); ok {
			v = newDetectResult(units)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := io.WriteString(w, formatText(v))
	return err
}

func newDetectResult(units []model.WorkUnit) detectResult {
	if len(units) == 0 {
		return detectResult{SkipReason: service.NoNewGamesReason}
	}
	return detectResult{WorkUnits: units}
}

func formatText(v any) string {
	var b strings.Builder
	switch r := v.(type) {
	case model.IngestionSummary:
		fmt.Fprintf(&b, "run %s: players=%d ingested=%d games=%d\n", r.RunID, r.PlayersSeen, r.PlayersIngested, r.GamesUpserted)
	case []model.SnapshotSummary:
		for _, s := range r {
			b.WriteString(formatText(s))
		}
	case model.SnapshotSummary:
		fmt.Fprintf(&b, "%s: players=%d ok=%d failed=%d written=%d\n", r.Method, r.PlayersSeen, r.Succeeded, r.Failed, r.RecordsWritten)
	case []model.WorkUnit:
		if len(r) == 0 {
			b.WriteString(service.NoNewGamesReason + "\n")
		}
		for _, u := range r {
			fmt.Fprintf(&b, "%s count=%d token=%s\n", u.RunKey, u.Evidence.Count, u.Token)
		}
	default:
		fmt.Fprintf(&b, "%v\n", v)
	}
	return b.String()
}
