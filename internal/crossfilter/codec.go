package crossfilter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seatrace/trackdash/pkg/core"
)

type wireSelection struct {
	ShipType  *string `json:"ship_type"`
	NavStatus *string `json:"nav_status"`
}

// Encode serializes a selection as {"ship_type": ..., "nav_status": ...}
// with null for unset dimensions.
func Encode(sel core.Selection) string {
	w := wireSelection{
		ShipType:  optionalPtr(sel.ShipType),
		NavStatus: optionalPtr(sel.NavStatus),
	}
	b, err := json.Marshal(w)
	if err != nil {
		// two nullable strings always marshal
		panic(err)
	}
	return string(b)
}

// Decode parses an encoded selection. Blank text is the empty selection.
// On error the empty selection is returned along with the error.
func Decode(text string) (core.Selection, error) {
	if strings.TrimSpace(text) == "" {
		return core.Selection{}, nil
	}
	var w wireSelection
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return core.Selection{}, fmt.Errorf("decode selection: %w", err)
	}
	return core.Selection{
		ShipType:  ptrOptional(w.ShipType),
		NavStatus: ptrOptional(w.NavStatus),
	}, nil
}

func optionalPtr(o core.Optional) *string {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

func ptrOptional(p *string) core.Optional {
	if p == nil {
		return core.Optional{}
	}
	return core.Some(*p)
}
