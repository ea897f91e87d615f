package library

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// Summary formats the song count and total duration of a view, for example
// "1,204 songs • 73 hrs 5 mins".
func Summary(v View) string {
	total := v.TotalLength()
	hours := int(total.Hours())
	minutes := int(total.Minutes()) % 60

	return fmt.Sprintf("%s %s • %s %s",
		humanize.Comma(int64(len(v.Rows))),
		english.PluralWord(len(v.Rows), "song", "songs"),
		english.Plural(hours, "hr", "hrs"),
		english.Plural(minutes, "min", "mins"),
	)
}
