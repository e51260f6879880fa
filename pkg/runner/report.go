package runner

import (
	"fmt"
	"strings"
	"time"
)

const reportTitle = "Linux.do Read Posts"

// BuildReport renders the end-of-run summary pushed over the notification
// channels. One line per account, then the total across accounts.
func BuildReport(results []Result, executedAt time.Time, baseURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🕒 Execution time: %s\n\n", executedAt.Format("2006-01-02 15:04:05"))

	total := 0
	for _, res := range results {
		elapsed := formatDuration(res.Duration)
		if res.Success {
			fmt.Fprintf(&b, "✅ %s: Read %d posts (%s)\n", res.Account.Masked(), res.ReadCount, elapsed)
			fmt.Fprintf(&b, "   Last topic: %s/t/topic/%d\n", baseURL, res.LastTopicID)
			total += res.ReadCount
		} else {
			fmt.Fprintf(&b, "❌ %s: %v (%s)\n", res.Account.Masked(), res.Err, elapsed)
		}
	}

	fmt.Fprintf(&b, "\n📊 Total posts read: %d", total)
	return b.String()
}

// formatDuration renders a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
