package broker

// Position is the single net position of a backtest.
type Position struct {
	Size        int64   `json:"size"`         // positive = long, negative = short
	Price       float64 `json:"price"`        // size-weighted average entry
	OriginPrice float64 `json:"origin_price"` // entry of the current directional stance
}

func (p *Position) IsFlat() bool { return p.Size == 0 }

// apply books a signed fill and returns the size before it.
// Same-sign fills average the entry price. A fill from flat, to flat or
// across zero resets Price and OriginPrice to the fill price.
func (p *Position) apply(deal int64, price float64) (pre int64) {
	pre = p.Size
	post := pre + deal
	if sameSign(pre, post) {
		p.Price = (float64(pre)*p.Price + float64(deal)*price) / float64(post)
	} else {
		p.Price = price
		p.OriginPrice = price
	}
	p.Size = post
	return pre
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func flipped(a, b int64) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
