package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"wfh/attendance/internal/api"
	"wfh/attendance/internal/attendance"
	"wfh/attendance/internal/session"
)

func (a *App) dashboard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	date := fs.String("date", a.Client.Today().Format("2006-01-02"), "day to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.parseDate(*date); err != nil {
		return err
	}
	o, err := a.Client.DailyOverview(ctx, *date)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Overview for %s\n\n", *date)
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Employees:\t%d\t(%d active)\n", o.TotalEmployees, o.ActiveEmployees)
	fmt.Fprintf(tw, "Complete:\t%d\n", o.Present)
	fmt.Fprintf(tw, "In progress:\t%d\n", o.Incomplete)
	fmt.Fprintf(tw, "Absent:\t%d\n", o.Absent)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(o.Recent) > 0 {
		fmt.Fprintln(a.Out, "\nRecent activity")
		writeDays(a.Out, o.Recent, true)
	}
	return nil
}

func (a *App) report(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	date := fs.String("date", "", "single day")
	from := fs.String("from", "", "first day of a range")
	to := fs.String("to", "", "last day of a range")
	status := fs.String("status", "all", "all, present, incomplete or absent")
	name := fs.String("name", "", "employee name contains")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := attendance.Filter{Status: attendance.StatusFilter(*status), EmployeeName: *name}
	if !filter.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrUsage, *status)
	}
	var rf api.ReportFilter
	switch {
	case *date != "" && (*from != "" || *to != ""):
		return fmt.Errorf("%w: use either -date or -from/-to", ErrUsage)
	case *date != "":
		rf.Date = *date
	case *from != "" || *to != "":
		rf.StartDate, rf.EndDate = *from, *to
	default:
		rf.Date = a.Client.Today().Format("2006-01-02")
	}
	for _, v := range []string{rf.Date, rf.StartDate, rf.EndDate} {
		if v == "" {
			continue
		}
		if _, err := a.parseDate(v); err != nil {
			return err
		}
	}

	days, err := a.Client.AttendanceReport(ctx, rf)
	if err != nil {
		return err
	}
	days = filter.Apply(days)
	if len(days) == 0 {
		fmt.Fprintln(a.Out, "No attendance records")
		return nil
	}
	writeDays(a.Out, days, true)
	sum := attendance.Aggregate(days)
	fmt.Fprintf(a.Out, "\nRecords: %d  Complete: %d  In progress: %d  Absent: %d  Hours: %.1f\n",
		sum.Total, sum.Complete, sum.Incomplete, sum.Absent, sum.TotalHours)
	return nil
}

func (a *App) employees(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: wfhctl employees <list|create|update|delete>", ErrUsage)
	}
	switch args[0] {
	case "list":
		return a.listEmployees(ctx, args[1:])
	case "create":
		return a.saveEmployee(ctx, "create", args[1:])
	case "update":
		return a.saveEmployee(ctx, "update", args[1:])
	case "delete":
		return a.deleteEmployee(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown employees command %q", ErrUsage, args[0])
	}
}

func (a *App) listEmployees(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("employees list", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 10, "employees per page")
	search := fs.String("search", "", "name or email contains")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.Client.ListEmployees(ctx, *page, *limit, *search)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPOSITION\tPHONE\tSTATUS")
	for _, e := range res.Employees {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Email, dash(e.Position), dash(e.Phone), dash(e.Status))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "\nPage %d of %d, %d employees\n", *page, res.TotalPages, res.TotalEmployees)
	return nil
}

func (a *App) saveEmployee(ctx context.Context, action string, args []string) error {
	fs := flag.NewFlagSet("employees "+action, flag.ContinueOnError)
	id := fs.String("id", "", "employee id (update only)")
	var in api.EmployeeInput
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Position, "position", "", "job position")
	fs.StringVar(&in.Phone, "phone", "", "phone number")
	fs.StringVar(&in.Status, "status", "", "active or inactive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		e   api.Employee
		err error
	)
	if action == "update" {
		if *id == "" {
			return fmt.Errorf("%w: -id is required", ErrUsage)
		}
		e, err = a.Client.UpdateEmployee(ctx, session.ID(*id), in)
	} else {
		e, err = a.Client.CreateEmployee(ctx, in)
	}
	if err != nil {
		return err
	}
	verb := "Created"
	if action == "update" {
		verb = "Updated"
	}
	fmt.Fprintf(a.Out, "%s employee %s (%s)\n", verb, e.Name, e.ID)
	return nil
}

func (a *App) deleteEmployee(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("employees delete", flag.ContinueOnError)
	id := fs.String("id", "", "employee id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: -id is required", ErrUsage)
	}
	if err := a.Client.DeleteEmployee(ctx, session.ID(*id)); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Deleted employee %s\n", *id)
	return nil
}
