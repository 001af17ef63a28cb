package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/timeline"
)

const barWidth = 20

// emit writes v as indented JSON under --json, otherwise calls text.
func (a *app) emit(w io.Writer, v interface{}, text func(io.Writer)) error {
	if a.jsonOut {
		return printJSON(w, v)
	}
	text(w)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printTasks(w io.Writer, tasks []*domain.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tDAYS\tAFTER\tCATEGORY\tSTATUS")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			t.ID, t.Name, t.Duration, dashIfEmpty(strings.Join(t.Dependencies, ",")),
			dashIfEmpty(string(t.Category)), t.Status)
	}
	_ = tw.Flush()
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func stateIcon(s timeline.State) string {
	if s == timeline.Running {
		return "▶"
	}
	return "⏸"
}

// frameLine is the one-line form of a frame: state, day and overall progress.
func frameLine(f timeline.Frame) string {
	return fmt.Sprintf("%s Day %.1f of %d  %s %3.0f%%", stateIcon(f.State), f.Day, f.Total, bar(f.Overall, barWidth), f.Overall*100)
}

func printFrame(w io.Writer, f timeline.Frame) {
	fmt.Fprintln(w, frameLine(f))
	if len(f.Tasks) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := newTable(w)
	for _, tf := range f.Tasks {
		marker := " "
		if tf.Critical {
			marker = "*"
		}
		if !tf.Resolved {
			_, _ = fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, tf.ID, tf.Name, "unresolved: missing dependency")
			continue
		}
		_, _ = fmt.Fprintf(tw, "%s %s\t%s\t%s %3.0f%%\tday %d-%d\n",
			marker, tf.ID, tf.Name, bar(tf.Progress, barWidth), tf.Progress*100, tf.Start, tf.Finish)
	}
	_ = tw.Flush()
}

func bar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
