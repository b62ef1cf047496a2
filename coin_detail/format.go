package coin_detail

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/cryptoview/pricewatch/coingecko_client"
	cg "github.com/cryptoview/pricewatch/coingecko_common"
)

// FormatCoinDetails shapes a raw /coins/{id} document for currency.
// A document without an id is rejected as a parse error.
func FormatCoinDetails(raw []byte, currency string) (CoinDetails, error) {
	if !gjson.ValidBytes(raw) {
		return CoinDetails{}, cg.NewParseError("invalid coin data received from API", nil)
	}

	doc := gjson.ParseBytes(raw)
	id := doc.Get("id")
	if !id.Exists() || id.String() == "" {
		return CoinDetails{}, cg.NewParseError("invalid coin data received from API: missing id", nil)
	}

	cur := gjsonKey(strings.ToLower(currency))
	md := doc.Get("market_data")

	image := doc.Get("image.large").String()
	if image == "" {
		image = doc.Get("image.small").String()
	}

	return CoinDetails{
		ID:                id.String(),
		Symbol:            strings.ToUpper(doc.Get("symbol").String()),
		Name:              doc.Get("name").String(),
		Image:             image,
		Description:       doc.Get("description.en").String(),
		CurrentPrice:      md.Get("current_price." + cur).Float(),
		PriceChange24h:    md.Get("price_change_percentage_24h").Float(),
		MarketCap:         md.Get("market_cap." + cur).Float(),
		MarketCapRank:     int(md.Get("market_cap_rank").Int()),
		TotalVolume:       md.Get("total_volume." + cur).Float(),
		CirculatingSupply: md.Get("circulating_supply").Float(),
		TotalSupply:       md.Get("total_supply").Float(),
		MaxSupply:         md.Get("max_supply").Float(),
		AllTimeHigh:       md.Get("ath." + cur).Float(),
		AllTimeLow:        md.Get("atl." + cur).Float(),
		AthDate:           md.Get("ath_date." + cur).String(),
		AtlDate:           md.Get("atl_date." + cur).String(),
		LastUpdated:       doc.Get("last_updated").String(),
		Currency:          strings.ToUpper(currency),
	}, nil
}

// FormatHistory maps [timestamp, price] pairs to price points
func FormatHistory(chart coingecko_client.MarketChart) ([]PricePoint, error) {
	if chart.Prices == nil {
		return nil, cg.NewParseError("invalid price history data received from API", nil)
	}

	points := make([]PricePoint, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		if len(pair) < 2 {
			continue
		}
		points = append(points, PricePoint{Timestamp: int64(pair[0]), Price: pair[1]})
	}
	return points, nil
}

// gjsonKey escapes path metacharacters so currency codes are matched literally
func gjsonKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
