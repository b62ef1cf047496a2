package coin_detail

// CoinDetails is the display shape of a single coin priced in one currency.
// Missing numeric fields are reported as zero.
type CoinDetails struct {
	ID                string  `json:"id"`
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Image             string  `json:"image"`
	Description       string  `json:"description"`
	CurrentPrice      float64 `json:"currentPrice"`
	PriceChange24h    float64 `json:"priceChange24h"`
	MarketCap         float64 `json:"marketCap"`
	MarketCapRank     int     `json:"marketCapRank"`
	TotalVolume       float64 `json:"totalVolume"`
	CirculatingSupply float64 `json:"circulatingSupply"`
	TotalSupply       float64 `json:"totalSupply"`
	MaxSupply         float64 `json:"maxSupply"`
	AllTimeHigh       float64 `json:"allTimeHigh"`
	AllTimeLow        float64 `json:"allTimeLow"`
	AthDate           string  `json:"athDate,omitempty"`
	AtlDate           string  `json:"atlDate,omitempty"`
	LastUpdated       string  `json:"lastUpdated,omitempty"`
	Currency          string  `json:"currency"`
}

// PricePoint is one sample of a price history
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}
