package coingecko_client

// SearchResult is the /search response. Only the coin list is used.
type SearchResult struct {
	Coins []SearchCoin `json:"coins"`
}

type SearchCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	APISymbol     string `json:"api_symbol,omitempty"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank"`
	Thumb         string `json:"thumb,omitempty"`
	Large         string `json:"large,omitempty"`
}

// MarketEntry is one row of /coins/markets. Numeric fields are pointers
// because the API returns null for coins without market data.
type MarketEntry struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	Image                    string   `json:"image,omitempty"`
	CurrentPrice             *float64 `json:"current_price"`
	MarketCap                *float64 `json:"market_cap"`
	MarketCapRank            *int     `json:"market_cap_rank"`
	TotalVolume              *float64 `json:"total_volume"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	PriceChange24h           *float64 `json:"price_change_24h"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	LastUpdated              string   `json:"last_updated,omitempty"`
}

// MarketChart is the /coins/{id}/market_chart response.
// Each point is a [timestamp_ms, value] pair.
type MarketChart struct {
	Prices       [][]float64 `json:"prices"`
	MarketCaps   [][]float64 `json:"market_caps,omitempty"`
	TotalVolumes [][]float64 `json:"total_volumes,omitempty"`
}
