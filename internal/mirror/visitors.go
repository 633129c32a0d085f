package mirror

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/araddon/dateparse"
	"github.com/guonaihong/gout"
	"github.com/maudia1/site/pkg/common"
	"github.com/mitchellh/mapstructure"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

const (
	summaryScanLimit   = 10000
	summaryRecentLimit = 20
)

// Visitor is a row of the visitors table
type Visitor struct {
	Numero     string     `json:"numero" mapstructure:"numero"`
	VisitCount int        `json:"visitCount" mapstructure:"visit_count"`
	LastVisit  *time.Time `json:"lastVisit" mapstructure:"last_visit"`
	FirstVisit *time.Time `json:"firstVisit" mapstructure:"first_visit"`
}

// VisitorSummary aggregates visitor activity
type VisitorSummary struct {
	TotalVisitors  int       `json:"totalVisitors"`
	TotalVisits    int       `json:"totalVisits"`
	MeanVisits     float64   `json:"meanVisits"`
	MedianVisits   float64   `json:"medianVisits"`
	RecentVisitors []Visitor `json:"recentVisitors"`
}

var timeType = reflect.TypeOf(time.Time{})

func stringToTimeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return dateparse.ParseAny(s)
}

func decodeVisitor(row map[string]interface{}) (Visitor, error) {
	var v Visitor
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToTimeHook,
		WeaklyTypedInput: true,
		Result:           &v,
	})
	if err != nil {
		return v, err
	}
	return v, dec.Decode(row)
}

// EnsureVisitor records a visit for phone: the counter is bumped when the
// number is known, otherwise a new row is inserted.
func (c *Client) EnsureVisitor(ctx context.Context, phone string, name string) error {
	if c.visitorsTable == "" {
		return ErrDisabled
	}
	digits := common.Digits(phone)
	if digits == "" {
		return nil
	}

	rows, err := c.rows(ctx, c.visitorsTable, gout.H{
		"select": "id,numero,visit_count",
		"numero": "eq." + digits,
		"limit":  "1",
	})
	if err != nil {
		if errors.Is(err, ErrDisabled) {
			return err
		}
		// lookup failures fall through to the idempotent upsert
		zap.L().Warn("visitor lookup failed", zap.Error(err), zap.String("namespace", "mirror"))
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(rows) > 0 {
		next := cast.ToInt(rows[0]["visit_count"]) + 1
		_, err := c.do(ctx, request{
			method: http.MethodPatch,
			table:  c.visitorsTable,
			query:  gout.H{"numero": "eq." + digits},
			prefer: "return=minimal",
			body:   map[string]interface{}{"visit_count": next, "last_visit": now},
		})
		return err
	}

	row := map[string]interface{}{"numero": digits, "visit_count": 1, "last_visit": now}
	if name != "" {
		row["nome"] = name
	}
	_, err = c.do(ctx, request{
		method: http.MethodPost,
		table:  c.visitorsTable,
		query:  gout.H{"on_conflict": "numero"},
		prefer: "resolution=merge-duplicates,return=minimal",
		body:   []map[string]interface{}{row},
	})
	return err
}

// VisitorSummary returns totals and the most recent visitors. It returns
// nil without error when nothing could be read.
func (c *Client) VisitorSummary(ctx context.Context) (*VisitorSummary, error) {
	if c.visitorsTable == "" || !c.Enabled() {
		return nil, ErrDisabled
	}

	var (
		summary VisitorSummary
		gotAny  bool
	)

	counts, err := c.rows(ctx, c.visitorsTable, gout.H{
		"select": "visit_count",
		"limit":  cast.ToString(summaryScanLimit),
	})
	if err != nil {
		zap.L().Warn("visitor stats failed", zap.Error(err), zap.String("namespace", "mirror"))
	} else {
		gotAny = true
		data := make(stats.Float64Data, 0, len(counts))
		for _, row := range counts {
			n := cast.ToInt(row["visit_count"])
			summary.TotalVisits += n
			data = append(data, float64(n))
		}
		summary.TotalVisitors = len(counts)
		if len(data) > 0 {
			summary.MeanVisits, _ = stats.Round(mustStat(stats.Mean(data)), 2)
			summary.MedianVisits = mustStat(stats.Median(data))
		}
	}

	summary.RecentVisitors = []Visitor{}
	recent, err := c.rows(ctx, c.visitorsTable, gout.H{
		"select": "numero,visit_count,last_visit,first_visit",
		"order":  "last_visit.desc",
		"limit":  cast.ToString(summaryRecentLimit),
	})
	if err != nil {
		zap.L().Warn("visitor list failed", zap.Error(err), zap.String("namespace", "mirror"))
	} else {
		for _, row := range recent {
			v, err := decodeVisitor(row)
			if err != nil {
				zap.L().Debug("skip visitor row", zap.Error(err), zap.String("namespace", "mirror"))
				continue
			}
			summary.RecentVisitors = append(summary.RecentVisitors, v)
		}
		if len(summary.RecentVisitors) > 0 {
			gotAny = true
		}
	}

	if !gotAny {
		return nil, nil
	}
	return &summary, nil
}

func mustStat(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	return v
}
