package mirror

import (
	"context"
	"strings"

	"github.com/guonaihong/gout"
	"github.com/maudia1/site/pkg/common"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

var (
	phoneColumns    = []string{"numero", "telefone", "phone", "celular", "fone", "whatsapp"}
	nameColumns     = []string{"nome", "name", "cliente"}
	cashbackColumns = []string{"cashback", "saldo", "valor", "balance"}
)

// CashbackResult is the customer balance found for a phone number
type CashbackResult struct {
	Found    bool     `json:"found"`
	Name     *string  `json:"name"`
	Cashback *float64 `json:"cashback"`
}

// PhoneVariants lists the forms a Brazilian number may be stored in:
// as typed, with or without the 55 country code, and its last 11 digits.
func PhoneVariants(digits string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	add(digits)
	if len(digits) == 11 && !strings.HasPrefix(digits, "55") {
		add("55" + digits)
	}
	if len(digits) == 13 && strings.HasPrefix(digits, "55") {
		add(digits[2:])
	}
	add(common.LastN(digits, 11))
	return out
}

func mapCashbackRow(row map[string]interface{}) CashbackResult {
	res := CashbackResult{Found: true}
	for _, k := range nameColumns {
		if v, ok := row[k]; ok && v != nil {
			s := cast.ToString(v)
			res.Name = &s
			break
		}
	}
	for _, k := range cashbackColumns {
		if v, ok := row[k]; ok && v != nil {
			if f, err := cast.ToFloat64E(v); err == nil {
				res.Cashback = &f
			}
			break
		}
	}
	return res
}

func rowMatches(row map[string]interface{}, variants map[string]bool, last11 string) bool {
	for _, col := range phoneColumns {
		d := common.Digits(cast.ToString(row[col]))
		if d == "" {
			continue
		}
		if variants[d] || strings.HasSuffix(d, last11) {
			return true
		}
	}
	return false
}

// LookupCashback searches the cashback view by exact phone match over the
// known phone columns, then falls back to a substring search on the last 11 digits.
func (c *Client) LookupCashback(ctx context.Context, phone string) (*CashbackResult, error) {
	if !c.Enabled() {
		return &CashbackResult{Found: false}, ErrDisabled
	}
	digits := common.Digits(phone)
	if digits == "" {
		return &CashbackResult{Found: false}, nil
	}
	variants := PhoneVariants(digits)

	for _, col := range phoneColumns {
		for _, v := range variants {
			rows, err := c.rows(ctx, c.cashbackView, gout.H{"select": "*", col: "eq." + v})
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				zap.L().Debug("cashback exact lookup failed", zap.String("column", col), zap.Error(err), zap.String("namespace", "mirror"))
				continue
			}
			if len(rows) > 0 {
				res := mapCashbackRow(rows[0])
				return &res, nil
			}
		}
	}

	last11 := common.LastN(digits, 11)
	ors := make([]string, 0, len(phoneColumns))
	for _, col := range phoneColumns {
		ors = append(ors, col+".ilike.*"+last11+"*")
	}
	rows, err := c.rows(ctx, c.cashbackView, gout.H{
		"select": "*",
		"limit":  "50",
		"or":     "(" + strings.Join(ors, ",") + ")",
	})
	if err != nil {
		zap.L().Warn("cashback fuzzy lookup failed", zap.Error(err), zap.String("namespace", "mirror"))
		return &CashbackResult{Found: false}, nil
	}
	set := make(map[string]bool, len(variants))
	for _, v := range variants {
		set[v] = true
	}
	for _, row := range rows {
		if rowMatches(row, set, last11) {
			res := mapCashbackRow(row)
			return &res, nil
		}
	}
	return &CashbackResult{Found: false}, nil
}
