package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"wfh/attendance/internal/api"
	"wfh/attendance/internal/attendance"
)

func (a *App) clockIn(ctx context.Context, args []string) error {
	return a.clock(ctx, true)
}

func (a *App) clockOut(ctx context.Context, args []string) error {
	return a.clock(ctx, false)
}

// clock checks today's state before posting so a second clock-in is refused
// locally, the same way the attendance page hides the button.
func (a *App) clock(ctx context.Context, in bool) error {
	user, err := a.currentUser()
	if err != nil {
		return err
	}
	today, err := a.Client.TodayStatus(ctx, user.ID, a.Client.Today())
	if err != nil {
		return err
	}
	actions := attendance.AvailableActions(today)
	if in && !actions.CanClockIn {
		return errors.New("already clocked in today")
	}
	if !in && !actions.CanClockOut {
		if attendance.Classify(today.Day("")) == attendance.StatusAbsent {
			return errors.New("clock in first")
		}
		return errors.New("already clocked out today")
	}

	if in {
		_, err = a.Client.ClockIn(ctx, user.ID)
	} else {
		_, err = a.Client.ClockOut(ctx, user.ID)
	}
	if err != nil {
		return err
	}
	verb := "in"
	if !in {
		verb = "out"
	}
	fmt.Fprintf(a.Out, "Clocked %s at %s\n", verb, a.Client.Today().Format("15:04"))
	return nil
}

func (a *App) today(ctx context.Context, args []string) error {
	user, err := a.currentUser()
	if err != nil {
		return err
	}
	now := a.Client.Today()
	today, err := a.Client.TodayStatus(ctx, user.ID, now)
	if err != nil {
		return err
	}
	day := today.Day(now.Format("2006-01-02"))
	hours, ok := attendance.DayHours(day)

	fmt.Fprintf(a.Out, "Date:      %s\n", now.Format("Monday, 2 January 2006"))
	fmt.Fprintf(a.Out, "Clock in:  %s\n", orDash(day.ClockIn))
	fmt.Fprintf(a.Out, "Clock out: %s\n", orDash(day.ClockOut))
	fmt.Fprintf(a.Out, "Status:    %s\n", attendance.Classify(day).Label())
	fmt.Fprintf(a.Out, "Hours:     %s\n", attendance.FormatHours(hours, ok))
	return nil
}

func (a *App) summary(ctx context.Context, args []string) error {
	user, err := a.currentUser()
	if err != nil {
		return err
	}
	start, end := a.Client.MonthToDate()
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	from := fs.String("from", start.Format("2006-01-02"), "first day")
	to := fs.String("to", end.Format("2006-01-02"), "last day")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if start, err = a.parseDate(*from); err != nil {
		return err
	}
	if end, err = a.parseDate(*to); err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("%w: -to is before -from", ErrUsage)
	}

	days, err := a.Client.Summary(ctx, user.ID, start, end)
	if err != nil {
		return err
	}
	writeDays(a.Out, days, false)
	sum := attendance.Aggregate(days)
	fmt.Fprintf(a.Out, "\nDays: %d  Complete: %d  In progress: %d  Absent: %d\n", sum.Total, sum.Complete, sum.Incomplete, sum.Absent)
	fmt.Fprintf(a.Out, "Total hours: %.1f  Attendance rate: %d%%\n", sum.TotalHours, attendance.AttendanceRate(sum))
	return nil
}

func (a *App) profile(ctx context.Context, args []string) error {
	user, err := a.currentUser()
	if err != nil {
		return err
	}
	p, err := a.Client.Profile(ctx, user.ProfileID())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
	fmt.Fprintf(tw, "Position:\t%s\n", dash(p.Position))
	fmt.Fprintf(tw, "Phone:\t%s\n", dash(p.PhoneNumber()))
	fmt.Fprintf(tw, "Photo:\t%s\n", dash(p.Photo))
	return tw.Flush()
}

func (a *App) profileUpdate(ctx context.Context, args []string) error {
	user, err := a.currentUser()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("profile-update", flag.ContinueOnError)
	phone := fs.String("phone", "", "new phone number")
	photo := fs.String("photo", "", "path to a JPG, PNG or GIF")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var update api.ProfileUpdate
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "phone" {
			update.Phone = phone
		}
	})
	if *photo != "" {
		data, err := os.ReadFile(*photo)
		if err != nil {
			return err
		}
		update.Photo = data
		update.PhotoName = filepath.Base(*photo)
	}
	if update.Empty() {
		return fmt.Errorf("%w: nothing to update, pass -phone or -photo", ErrUsage)
	}

	updated, err := a.Client.UpdateProfile(ctx, user.ProfileID(), update)
	if err != nil {
		return err
	}
	if err := a.Store.UpdateUser(ctx, updated); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Profile updated")
	return nil
}

func writeDays(w io.Writer, days []attendance.Day, withName bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if withName {
		fmt.Fprint(tw, "EMPLOYEE\tPOSITION\t")
	}
	fmt.Fprintln(tw, "DATE\tIN\tOUT\tHOURS\tSTATUS")
	for _, day := range days {
		if withName {
			fmt.Fprintf(tw, "%s\t%s\t", day.EmployeeName, dash(day.Position))
		}
		hours, ok := attendance.DayHours(day)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			formatDate(day.Date), orDash(day.ClockIn), orDash(day.ClockOut),
			attendance.FormatHours(hours, ok), attendance.Classify(day).Label())
	}
	_ = tw.Flush()
}

// formatDate shortens ISO timestamps to their date; other values pass through.
func formatDate(value string) string {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Format("2006-01-02")
	}
	if len(value) > 10 && value[4] == '-' && value[7] == '-' {
		return value[:10]
	}
	return value
}

func orDash(v *string) string {
	if v == nil {
		return "-"
	}
	return dash(*v)
}

func dash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
