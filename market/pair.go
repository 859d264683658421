package market

import "strings"

var quoteAssets = []string{"USDT", "USDC", "BUSD", "FDUSD", "USD", "EUR", "BTC", "ETH"}

// NormalizePair turns "btc/usdt", "BTC-USDT" or "btc_usdt" into "BTCUSDT".
func NormalizePair(pair string) string {
	r := strings.NewReplacer("/", "", "-", "", "_", "", " ", "")
	return strings.ToUpper(r.Replace(pair))
}

// SplitPair returns the base and quote assets of a pair. When no known
// quote asset matches, quote is empty and base is the normalized pair.
func SplitPair(pair string) (base, quote string) {
	p := NormalizePair(pair)
	for _, q := range quoteAssets {
		if strings.HasSuffix(p, q) && len(p) > len(q) {
			return p[:len(p)-len(q)], q
		}
	}
	return p, ""
}

// DisplayPair formats a pair as BASE/QUOTE.
func DisplayPair(pair string) string {
	base, quote := SplitPair(pair)
	if quote == "" {
		return base
	}
	return base + "/" + quote
}
