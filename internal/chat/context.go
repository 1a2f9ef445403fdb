package chat

import (
	"fmt"
	"math"
	"strings"

	"StockDesk/internal/model"
)

// BuildContext renders a symbol's market data into the Vietnamese analysis
// block injected ahead of the model prompt. Missing sections are skipped so
// the model never sees placeholder noise.
func BuildContext(symbol string, data *model.SymbolData) string {
	if data == nil {
		return fmt.Sprintf("Đang phân tích mã %s, không có dữ liệu chi tiết.", symbol)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== PHÂN TÍCH CỔ PHIẾU: %s ===\n\n", symbol)

	b.WriteString("📈 THÔNG TIN GIÁ:\n")
	fmt.Fprintf(&b, "- Giá hiện tại: %s\n", formatPrice(data.Price))
	fmt.Fprintf(&b, "- Thay đổi: %s\n", formatSignedPercent(data.PercentChange*100))
	fmt.Fprintf(&b, "- Xu hướng: %s\n", trendLabel(data.Trend))

	b.WriteString("\n📊 CHỈ SỐ TÀI CHÍNH:\n")
	fmt.Fprintf(&b, "- P/E (Giá/Lợi nhuận): %s\n", formatRatio(data.Financials.PE))
	fmt.Fprintf(&b, "- ROE (Tỷ suất sinh lời vốn): %s\n", formatPercent(data.Financials.ROE))
	fmt.Fprintf(&b, "- EPS (Thu nhập/Cổ phiếu): %s\n", formatPrice(data.Financials.EPS))
	fmt.Fprintf(&b, "- ROA: %s\n", formatPercent(data.Financials.ROA))
	fmt.Fprintf(&b, "- P/B (Giá/Giá trị sổ sách): %s\n", formatRatio(data.Financials.PB))
	fmt.Fprintf(&b, "- Beta (Độ biến động): %s\n", formatRatio(data.Financials.Beta))
	fmt.Fprintf(&b, "- Cổ tức: %s\n", formatPercent(data.Financials.DividendYield))

	if v := data.Valuation; v != nil {
		b.WriteString("\n💰 ĐỊNH GIÁ MỤC TIÊU:\n")
		fmt.Fprintf(&b, "- Giá đồng thuận: %s\n", formatPrice(v.ConsensusPrice))
		if data.Price > 0 && v.ConsensusPrice > 0 {
			upside := (v.ConsensusPrice - data.Price) / data.Price * 100
			verdict := "⚖️ HỢP LÝ"
			if upside >= 10 {
				verdict = "📈 TIỀM NĂNG"
			} else if upside <= -10 {
				verdict = "📉 ĐỊNH GIÁ CAO"
			}
			fmt.Fprintf(&b, "- Upside/Downside so với giá hiện tại: %+.1f%% %s\n", upside, verdict)
		}
		if len(v.Methods) > 0 {
			b.WriteString("\n📊 CHI TIẾT ĐỊNH GIÁ THEO PHƯƠNG PHÁP:\n")
			for _, m := range v.Methods {
				if data.Price > 0 {
					up := (m.Price - data.Price) / data.Price * 100
					fmt.Fprintf(&b, "- %s: %s (%+.1f%%)\n", m.Name, formatPrice(m.Price), up)
				} else {
					fmt.Fprintf(&b, "- %s: %s\n", m.Name, formatPrice(m.Price))
				}
			}
		}
	}

	if bars := data.History.Bars; len(bars) > 0 {
		recent := bars
		if len(recent) > 7 {
			recent = recent[len(recent)-7:]
		}
		first, last := recent[0].Close, recent[len(recent)-1].Close

		high, low := 0.0, math.MaxFloat64
		for _, bar := range bars {
			if bar.High > high {
				high = bar.High
			}
			if bar.Low > 0 && bar.Low < low {
				low = bar.Low
			}
		}

		b.WriteString("\n📉 XU HƯỚNG GIÁ (7 NGÀY GẦN NHẤT):\n")
		if first > 0 {
			fmt.Fprintf(&b, "- Biến động 7 ngày: %.2f%%\n", (last-first)/first*100)
		}
		fmt.Fprintf(&b, "- Giá cao nhất: %s\n", formatPrice(high))
		if low < math.MaxFloat64 {
			fmt.Fprintf(&b, "- Giá thấp nhất: %s\n", formatPrice(low))
		}
	}

	if len(data.News) > 0 {
		b.WriteString("\n📰 TIN TỨC GẦN ĐÂY:\n")
		for i, n := range data.News {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, n.Text)
		}
	}

	if len(data.OrderBook) > 0 {
		var bidVol, askVol float64
		for _, lvl := range data.OrderBook {
			if lvl.Side == "bid" {
				bidVol += lvl.Volume
			} else {
				askVol += lvl.Volume
			}
		}
		pressure := "Cân bằng ⚪"
		if bidVol > askVol {
			pressure = "MUA mạnh hơn 🟢"
		} else if askVol > bidVol {
			pressure = "BÁN mạnh hơn 🔴"
		}
		b.WriteString("\n📋 SỔ LỆNH:\n")
		fmt.Fprintf(&b, "- Tổng khối lượng MUA: %s\n", groupDigits(bidVol))
		fmt.Fprintf(&b, "- Tổng khối lượng BÁN: %s\n", groupDigits(askVol))
		fmt.Fprintf(&b, "- Áp lực: %s\n", pressure)
	}

	return b.String()
}

func trendLabel(t model.Trend) string {
	switch t {
	case model.TrendUp:
		return "TĂNG 📈"
	case model.TrendDown:
		return "GIẢM 📉"
	default:
		return "ĐI NGANG ➡️"
	}
}

// groupDigits formats the integer part with Vietnamese thousand separators.
func groupDigits(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "." + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

func formatPrice(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return groupDigits(v) + " VNĐ"
}

func formatPercent(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", v)
}

func formatSignedPercent(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%+.2f%%", v)
}

func formatRatio(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", v)
}
