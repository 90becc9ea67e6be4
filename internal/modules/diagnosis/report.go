package diagnosis

import (
	"fmt"
	"math"
	"strings"
)

// Report is the rule-based commentary produced without any AI service.
type Report struct {
	Performance string `json:"performance"`
	Risk        string `json:"risk"`
	Suggestion  string `json:"suggestion"`
	Audience    string `json:"audience"`
}

// LocalReport turns a diagnosis into four short paragraphs. Bands are in
// percent: return 20/5/-5, drawdown 10/25, score 4.5/3.5/2.5.
func LocalReport(d Diagnosis) Report {
	ret := round2(d.Metrics.TotalReturn * 100)
	mdd := round2(d.Metrics.MaxDrawdown * 100)
	sharpe := round2(d.Metrics.Sharpe)

	var r Report
	switch {
	case ret > 20:
		r.Performance = fmt.Sprintf("Return over the period is %.2f%%, far ahead of the broad market. The manager shows strong timing or stock selection.", ret)
	case ret > 5:
		r.Performance = fmt.Sprintf("Return over the period is %.2f%%, a steady result ahead of most peers.", ret)
	case ret > -5:
		r.Performance = fmt.Sprintf("Return over the period is %.2f%%, roughly flat. The fund tracks the market without clear excess return.", ret)
	default:
		r.Performance = fmt.Sprintf("Return over the period is %.2f%%, well behind its peers. Sector weakness or strategy errors are likely causes.", ret)
	}

	switch {
	case mdd < 10:
		r.Risk = fmt.Sprintf("Drawdown control is excellent (max drawdown %.2f%%).", mdd)
	case mdd < 25:
		r.Risk = fmt.Sprintf("Max drawdown of %.2f%% is in line with the category. Risk is acceptable for the return.", mdd)
	default:
		r.Risk = fmt.Sprintf("Max drawdown reached %.2f%%. The style is aggressive or concentrated and losses can be deep in sell-offs.", mdd)
	}
	if sharpe > 1 {
		r.Risk += fmt.Sprintf(" Sharpe ratio %.2f shows good return per unit of risk.", sharpe)
	} else {
		r.Risk += fmt.Sprintf(" Sharpe ratio %.2f shows limited excess return per unit of risk.", sharpe)
	}

	switch {
	case d.Score >= 4.5:
		r.Suggestion = "Hold or add. Every metric is strong; new positions can be built in tranches on pullbacks."
	case d.Score >= 3.5:
		r.Suggestion = "Hold. Return and risk are balanced; keep the current position."
	case d.Score >= 2.5:
		r.Suggestion = "Wait. Value is average; avoid adding until it shows recovery strength."
	default:
		r.Suggestion = "Reduce. Risk-adjusted return is poor; consider trimming on strength."
	}

	switch {
	case mdd < 15 && sharpe > 1:
		r.Audience = "Conservative or balanced investors seeking steady long-term growth."
	case ret > 15:
		r.Audience = "Aggressive investors who accept volatility in exchange for upside."
	default:
		r.Audience = "Investors with moderate risk tolerance building a diversified allocation."
	}
	return r
}

// Markdown renders the report for display.
func (r Report) Markdown(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Local analysis report (%s)\n\n", name)
	fmt.Fprintf(&b, "1. **Performance**\n%s\n\n", r.Performance)
	fmt.Fprintf(&b, "2. **Risk**\n%s\n\n", r.Risk)
	fmt.Fprintf(&b, "3. **Suggestion**\n%s\n\n", r.Suggestion)
	fmt.Fprintf(&b, "4. **Suitable for**\n%s\n", r.Audience)
	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
