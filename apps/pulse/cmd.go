package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/schoolpulse/apps"
	"github.com/trezcool/schoolpulse/core/access"
	"github.com/trezcool/schoolpulse/core/dashboard"
	"github.com/trezcool/schoolpulse/core/incident"
)

var (
	errRejected    = errors.New("submission rejected by backend")
	errUnreachable = errors.New("backend unreachable")
)

type commandLine struct {
	ctrl   *dashboard.Controller
	render renderer
	role   string
}

func newCommandLine(ctrl *dashboard.Controller, out io.Writer, styled bool) *commandLine {
	return &commandLine{
		ctrl:   ctrl,
		render: renderer{out: out, styled: styled},
	}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pulse",
		Short:         "School Pulse: report incidents & view insights",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.render.out)
	root.SetErr(cli.render.out)
	root.PersistentFlags().StringVar(&cli.role, "role", string(access.RolePrincipal), "staff role (principal, administrator, teacher, support)")

	root.AddCommand(cli.insightsCmd())
	root.AddCommand(cli.delayCmd())
	root.AddCommand(cli.infractionCmd())
	root.AddCommand(cli.pingCmd())
	root.AddCommand(cli.capabilitiesCmd())
	root.AddCommand(cli.infoCmd())
	return root
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		cli.render.error(err)
	}
	return err
}

// authorize checks the selected role against the capability policy.
func (cli *commandLine) authorize(action access.Action) error {
	role, _ := access.ParseRole(cli.role)
	if !access.CapabilitiesFor(role).Has(action) {
		return errors.Wrapf(apps.ErrForbidden, "%s cannot %s", role.Label(), action)
	}
	return nil
}

func (cli *commandLine) insightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Fetch and render the insights dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.authorize(access.ActionViewInsights); err != nil {
				return err
			}
			snap, err := cli.ctrl.LoadInsights(cmd.Context())
			if err != nil {
				return err
			}
			cli.render.insights(snap)
			return nil
		},
	}
}

func (cli *commandLine) delayCmd() *cobra.Command {
	var entry incident.DelayLogEntry
	var delayType, date string

	cmd := &cobra.Command{
		Use:   "delay",
		Short: "Report a strategic delay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.authorize(access.ActionReportDelay); err != nil {
				return err
			}
			ts, err := parseDate(date)
			if err != nil {
				return err
			}
			entry.DelayType = incident.DelayType(delayType)
			entry.Timestamp = ts

			res, err := cli.ctrl.SubmitDelayLog(cmd.Context(), entry)
			if err != nil {
				return err
			}
			return cli.submitted(res)
		},
	}
	cmd.Flags().StringVar(&entry.Teacher, "teacher", "", "teacher name (default \""+incident.DefaultTeacher+"\")")
	cmd.Flags().StringVar(&delayType, "type", "", "delay type: RESOURCE, ADMIN, PERSONAL or TECHNICAL")
	cmd.Flags().StringVar(&entry.Notes, "notes", "", "optional notes")
	cmd.Flags().StringVar(&date, "date", "", "date of the delay, YYYY-MM-DD (default today)")
	return cmd
}

func (cli *commandLine) infractionCmd() *cobra.Command {
	var entry incident.InfractionEntry
	var positive bool
	var date string

	cmd := &cobra.Command{
		Use:   "infraction",
		Short: "Report a student infraction (or positive behaviour)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.authorize(access.ActionReportInfraction); err != nil {
				return err
			}
			ts, err := parseDate(date)
			if err != nil {
				return err
			}
			entry.Action = incident.ActionFor(positive)
			entry.Timestamp = ts

			res, err := cli.ctrl.SubmitInfraction(cmd.Context(), entry)
			if err != nil {
				return err
			}
			return cli.submitted(res)
		},
	}
	cmd.Flags().StringVar(&entry.Student, "student", "", "student name")
	cmd.Flags().StringVar(&entry.Category, "category", "", "infraction category, eg. Tardiness")
	cmd.Flags().BoolVar(&positive, "positive", false, "record a positive action")
	cmd.Flags().StringVar(&date, "date", "", "date of the infraction, YYYY-MM-DD (default today)")
	return cmd
}

func (cli *commandLine) submitted(res incident.SubmitResult) error {
	cli.render.submitResult(res)
	if !res.Success {
		return errRejected
	}
	return nil
}

func (cli *commandLine) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test the connection to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok := cli.ctrl.Ping(cmd.Context())
			cli.render.ping(ok, cli.ctrl.ConnectionInfo())
			if !ok {
				return errUnreachable
			}
			return nil
		},
	}
}

func (cli *commandLine) capabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List the actions the selected --role may invoke",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			role, _ := access.ParseRole(cli.role)
			cli.render.capabilities(role, access.CapabilitiesFor(role))
			return nil
		},
	}
}

func (cli *commandLine) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the backend connection settings",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cli.render.info(cli.ctrl.ConnectionInfo())
			return nil
		},
	}
}

// parseDate parses a YYYY-MM-DD --date flag in local time; empty means "now".
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ts, err := time.ParseInLocation(incident.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, apps.NewArgumentError("date", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return ts, nil
}
