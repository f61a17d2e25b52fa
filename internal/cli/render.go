package cli

import (
	"fmt"
	"strings"

	"github.com/ledgercast/ledgercast/internal/service"
)

// RenderForecast formats a forecast response for terminal display.
// This is demo output only; the engine itself hands plain numeric
// fields to whatever presentation layer consumes it.
func RenderForecast(resp *service.ForecastResponse) string {
	if !resp.Success {
		return ErrorStyle.Render("✗ "+resp.Message) + "\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Spending Forecast"))
	b.WriteString("\n")

	forecast := resp.Forecast
	rows := []string{
		fmt.Sprintf("Horizon          %d days", forecast.HorizonDays),
		fmt.Sprintf("Predicted total  %.2f", resp.TotalPredicted),
		fmt.Sprintf("Daily average    %.2f", resp.DailyAverage),
		fmt.Sprintf("Confidence       %.0f%%", resp.Confidence),
		fmt.Sprintf("Method           %s", resp.Method),
		fmt.Sprintf("History used     %d days", resp.DataPointsUsed),
	}
	b.WriteString(BoxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	b.WriteString(SubtleStyle.Render(resp.Message))
	b.WriteString("\n")

	return b.String()
}

// RenderSparkline draws a compact bar chart of daily predictions.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	bars := []rune("▁▂▃▄▅▆▇█")
	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return strings.Repeat(string(bars[0]), len(values))
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / maxVal * float64(len(bars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(bars) {
			idx = len(bars) - 1
		}
		b.WriteRune(bars[idx])
	}
	return b.String()
}
