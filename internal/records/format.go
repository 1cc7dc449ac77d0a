package records

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

const gweiDecimals = 9

// FormatGwei renders a gwei amount as ETH with four decimals.
func FormatGwei(gwei uint64) string {
	return decimal.NewFromUint64(gwei).Shift(-gweiDecimals).StringFixed(4) + " ETH"
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

func FormatUint(n uint64) string {
	if n > math.MaxInt64 {
		return strconv.FormatUint(n, 10)
	}
	return humanize.Comma(int64(n))
}

// FormatPercent renders a 0..1 ratio as a percentage.
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// FormatTime renders a unix timestamp in UTC.
func FormatTime(unix uint64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(int64(unix), 0).UTC().Format("2006-01-02 15:04:05")
}

// FormatHex renders bytes as 0x-prefixed hex.
func FormatHex(b []byte) string {
	if len(b) == 0 {
		return "-"
	}
	return hexutil.Encode(b)
}

// ShortHex keeps the head and tail of a long hex string.
func ShortHex(s string, keep int) string {
	if keep <= 0 || len(s) <= 2+2*keep+1 {
		return s
	}
	return s[:2+keep] + "…" + s[len(s)-keep:]
}

// FormatEpoch renders an optional epoch; nil and the far-future sentinel
// show as a dash.
func FormatEpoch(epoch *uint64) string {
	if epoch == nil || *epoch == farFutureEpoch {
		return "-"
	}
	return strconv.FormatUint(*epoch, 10)
}

const farFutureEpoch = 1<<64 - 1
