package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pt/internal/config"
	"pt/internal/engine"
	"pt/internal/notify"
	"pt/internal/persist"
	"pt/internal/task"
)

var rootCmd = &cobra.Command{
	Use:   "pt [task description]",
	Short: "Personal task tracker with pomodoro timing",
	Long: `pt keeps a small task list in a single JSON file and times work on
tasks in fixed 25 minute pomodoros.

Bare arguments add a task; flags operate on existing tasks by id:

  pt Write the quarterly report    add a task
  pt                               list active tasks
  pt -p 3                          start a pomodoro for task 3
  pt -f 3                          finish it early
  pt -t 3 15                       log 15 minutes on task 3 by hand
  pt -c 3 4                        check tasks 3 and 4
  pt --notify                      close overdue pomodoros and notify

Schedule 'pt --notify' from cron or a timer to get a desktop
notification and an alarm sound when a pomodoro elapses.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	cobra.OnInitialize(initConfig)
	addFlags()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addFlags() {
	fl := rootCmd.Flags()
	fl.BoolP("pomodoro", "p", false, "start a pomodoro for each task id")
	fl.BoolP("finish-pomodoro", "f", false, "finish the running pomodoro for each task id")
	fl.BoolP("track", "t", false, "log minutes on a task: -t <id> <minutes>")
	fl.BoolP("list", "l", false, "list active tasks")
	fl.Bool("list-archived", false, "list archived tasks")
	fl.BoolP("check", "c", false, "mark each task id done")
	fl.BoolP("uncheck", "u", false, "mark each task id not done")
	fl.BoolP("archive", "a", false, "archive each task id")
	fl.Bool("unarchive", false, "move each task id out of the archive")
	fl.Bool("archive-checked", false, "archive every done task")
	fl.Bool("notify", false, "close overdue pomodoros and send notifications")
	fl.Bool("test-notification", false, "send a test notification with the alarm sound")
	fl.Bool("json", false, "print lists as JSON")
	fl.String("config", "", "config file (default ~/.pt/config.yml)")
	fl.String("task-file", "", "task file (default ~/.pt/tasks.json)")
	fl.String("alarm-file", "", "alarm sound file (default ~/.pt/alarm.mp3)")

	rootCmd.MarkFlagsMutuallyExclusive("pomodoro", "finish-pomodoro", "track", "list",
		"list-archived", "check", "uncheck", "archive", "unarchive", "archive-checked",
		"notify", "test-notification")

	for _, name := range []string{"json", "config", "task-file", "alarm-file"} {
		_ = viper.BindPFlag(name, fl.Lookup(name))
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(viper.GetString("config"),
		viper.GetString("task-file"), viper.GetString("alarm-file"))
	if err != nil {
		return err
	}
	f, err := persist.Open(cfg.TaskFile)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Load()
	if err != nil {
		return err
	}
	eng := engine.New(st)

	out := dispatch(cmd, args, eng)
	if out.abort {
		return nil
	}
	if out.list {
		if err := printTasks(os.Stdout, st, out.archived, viper.GetBool("json"), eng); err != nil {
			return err
		}
	}
	if err := f.Save(st); err != nil {
		return err
	}
	// release the lock before talking to the desktop or the sound
	// device, so a slow delivery cannot stall another invocation
	if err := f.Close(); err != nil {
		return err
	}
	return deliver(out.notifications, cfg.AlarmFile)
}

// outcome is what a dispatched command leaves behind: whether the
// invocation was aborted on bad input (nothing listed, nothing saved),
// which list to print, and any notifications to deliver after save.
type outcome struct {
	abort         bool
	list          bool
	archived      bool
	notifications []notify.Notification
}

func dispatch(cmd *cobra.Command, args []string, eng engine.Engine) outcome {
	on := func(name string) bool {
		v, _ := cmd.Flags().GetBool(name)
		return v
	}

	switch {
	case on("pomodoro"):
		return applyToIDs(args, func(id int) {
			if err := eng.StartPomodoro(id); err != nil {
				printTaskErr(id, err)
				return
			}
			fmt.Printf("Pomodoro started for task %d.\n", id)
		})
	case on("finish-pomodoro"):
		return applyToIDs(args, func(id int) {
			if err := eng.FinishPomodoro(id); err != nil {
				printTaskErr(id, err)
				return
			}
			fmt.Printf("Pomodoro finished for task %d.\n", id)
		})
	case on("track"):
		return track(args, eng)
	case on("list"):
		return outcome{list: true}
	case on("list-archived"):
		return outcome{list: true, archived: true}
	case on("check"):
		return applyToIDs(args, func(id int) {
			if err := eng.CheckTask(id); err != nil {
				printTaskErr(id, err)
				return
			}
			fmt.Printf("Task %d checked.\n", id)
		})
	case on("uncheck"):
		return applyToIDs(args, func(id int) {
			if err := eng.UncheckTask(id); err != nil {
				printTaskErr(id, err)
				return
			}
			fmt.Printf("Task %d unchecked.\n", id)
		})
	case on("archive"):
		return applyToIDs(args, func(id int) {
			if err := eng.ArchiveTask(id); err != nil {
				printTaskErr(id, err)
				return
			}
			fmt.Printf("Task %d moved to archive.\n", id)
		})
	case on("unarchive"):
		return applyToIDs(args, func(id int) {
			if err := eng.UnarchiveTask(id); err != nil {
				printTaskErr(id, err)
				return
			}
			fmt.Printf("Task %d moved out of archive.\n", id)
		})
	case on("archive-checked"):
		for _, id := range eng.ArchiveDone() {
			fmt.Printf("Task %d moved to archive.\n", id)
		}
		return outcome{list: true}
	case on("notify"):
		return outcome{notifications: eng.DueNotifications()}
	case on("test-notification"):
		return outcome{notifications: []notify.Notification{{
			Title: "This is a test notification",
			Body:  "Here is some information about this test notification",
		}}}
	case len(args) == 0:
		return outcome{list: true}
	default:
		t, err := eng.AddTask(strings.Join(args, " "))
		if err != nil {
			fmt.Println("No task description specified.")
			return outcome{abort: true}
		}
		fmt.Printf("Task %d added.\n", t.ID)
		return outcome{list: true}
	}
}

// applyToIDs parses every id upfront so one malformed id aborts the
// whole command before anything mutates.
func applyToIDs(args []string, apply func(id int)) outcome {
	if len(args) == 0 {
		fmt.Println("No task ID specified.")
		return outcome{abort: true}
	}
	ids, bad := parseIDs(args)
	if bad != "" {
		fmt.Printf("Invalid task ID %s.\n", bad)
		return outcome{abort: true}
	}
	for _, id := range ids {
		apply(id)
	}
	return outcome{list: true}
}

func parseIDs(args []string) (ids []int, bad string) {
	ids = make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, arg
		}
		ids = append(ids, int(n))
	}
	return ids, ""
}

func track(args []string, eng engine.Engine) outcome {
	if len(args) < 1 {
		fmt.Println("No task ID specified.")
		return outcome{abort: true}
	}
	if len(args) < 2 {
		fmt.Println("No time specified.")
		return outcome{abort: true}
	}
	id64, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Printf("Invalid task ID %s.\n", args[0])
		return outcome{abort: true}
	}
	minutes, err := strconv.Atoi(args[1])
	if err != nil || minutes < 0 {
		fmt.Printf("Invalid time %s.\n", args[1])
		return outcome{abort: true}
	}
	id := int(id64)
	if err := eng.TrackTime(id, minutes); err != nil {
		printTaskErr(id, err)
		return outcome{list: true}
	}
	fmt.Printf("Tracked %d minutes for task %d.\n", minutes, id)
	return outcome{list: true}
}

func printTaskErr(id int, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		fmt.Printf("Task %d not found.\n", id)
	case errors.Is(err, task.ErrPomodoroActive):
		fmt.Printf("Pomodoro already active for task %d.\n", id)
	case errors.Is(err, task.ErrNoActivePomodoro):
		fmt.Printf("No pomodoro active for task %d.\n", id)
	default:
		fmt.Println("error:", err)
	}
}

func printTasks(w io.Writer, st *task.Store, archived, jsonOut bool, eng engine.Engine) error {
	tasks := st.Tasks()
	if jsonOut {
		out := make([]*task.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Archived == archived {
				out = append(out, t)
			}
		}
		return printJSON(w, out)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return nil
	}
	now := eng.Now().UTC()
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Done", "Description", "Time"})
	rows := 0
	for _, t := range tasks {
		if t.Archived != archived {
			continue
		}
		done := ""
		if t.Done {
			done = "x"
		}
		tw.AppendRow(table.Row{fmt.Sprintf("%03d", t.ID), done, t.Description, timeCell(t, now, eng.Duration)})
		rows++
	}
	if rows == 0 {
		return nil
	}
	tw.Render()
	return nil
}

// timeCell shows the remaining time while a pomodoro runs and the total
// time spent otherwise.
func timeCell(t *task.Task, now time.Time, d time.Duration) string {
	if rem, ok := t.Remaining(now, d); ok {
		return fmt.Sprintf("%dm %02ds", int(rem/time.Minute), int(rem/time.Second)%60)
	}
	return fmt.Sprintf("Σ%d min", int(t.TimeSpent(now)/time.Minute))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// deliver runs only after the store is saved and unlocked. Desktop
// failures are reported and skipped; a failed alarm is fatal.
func deliver(ns []notify.Notification, alarmFile string) error {
	if len(ns) == 0 {
		return nil
	}
	desktop := notify.Desktop{}
	for _, n := range ns {
		fmt.Printf("%s: %s\n", n.Title, n.Body)
		if err := desktop.Send(n); err != nil {
			fmt.Printf("Failed to display notification: %v\n", err)
		}
	}
	return notify.Alarm{Path: alarmFile}.Play()
}
