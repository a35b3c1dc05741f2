package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/jobtrack/internal/config"
	"github.com/kalambet/jobtrack/internal/job"
	"github.com/kalambet/jobtrack/internal/query"
	"github.com/kalambet/jobtrack/internal/storage"
)

// --- jobs ---

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List and manage job applications",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List job applications",
	Long: `List one page of your job applications.

Examples:
  jobtrack jobs list --search acme
  jobtrack jobs list --status interview --sort a-z
  jobtrack jobs list --type remote --page 2 --limit 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/jobs?"+listValues(cmd).Encode())
		if err != nil {
			return err
		}

		var res query.ListResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		printJobs(os.Stdout, res)
		return nil
	},
}

// listValues collects the list flags that were set on cmd.
func listValues(cmd *cobra.Command) url.Values {
	v := url.Values{}
	for _, name := range []string{"search", "status", "type", "sort"} {
		if s, _ := cmd.Flags().GetString(name); s != "" {
			v.Set(name, s)
		}
	}
	for _, name := range []string{"page", "limit"} {
		if cmd.Flags().Changed(name) {
			n, _ := cmd.Flags().GetInt(name)
			v.Set(name, strconv.Itoa(n))
		}
	}
	return v
}

func printJobs(w io.Writer, res query.ListResult) {
	if len(res.Jobs) == 0 {
		fmt.Fprintln(w, "No jobs found.")
		return
	}
	for _, j := range res.Jobs {
		fmt.Fprintf(w, "%s  %-10s %-11s %-24s %s\n",
			colorize(colorCyan, shortID(j.ID)),
			j.Status,
			j.Type,
			truncate(j.Company, 24),
			j.Position,
		)
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d jobs, %d per page)\n", res.CurrentPage, res.TotalPages, res.TotalJobs, res.Limit)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single job application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		rec, err := fetchJob(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a job application",
	Long: `Add a job application.

Examples:
  jobtrack jobs add --company Acme --position "Backend Engineer" --location Berlin
  jobtrack jobs add --company Globex --position SRE --location Remote --type remote --status interview`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := jobInput{}
		in.Company, _ = cmd.Flags().GetString("company")
		in.Position, _ = cmd.Flags().GetString("position")
		in.Location, _ = cmd.Flags().GetString("location")
		in.Status, _ = cmd.Flags().GetString("status")
		in.Type, _ = cmd.Flags().GetString("type")

		if in.Company == "" || in.Position == "" || in.Location == "" {
			return fmt.Errorf("--company, --position and --location are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/jobs", in)
		if err != nil {
			return err
		}

		var result struct {
			Job job.Record `json:"job"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Added job %s (%s at %s)", result.Job.ID, result.Job.Position, result.Job.Company)
		return nil
	},
}

var jobsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a job application",
	Long: `Update fields of a job application. Only the flags you pass change.

Examples:
  jobtrack jobs update 1b2c3d4e --status interview
  jobtrack jobs update 1b2c3d4e --position "Staff Engineer" --location Remote`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		current, err := fetchJob(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}

		in := mergeUpdate(current, cmd)
		resp, err := client.put(cmd.Context(), "/jobs/"+url.PathEscape(args[0]), in)
		if err != nil {
			return err
		}

		var result struct {
			Job job.Record `json:"job"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Updated job %s", result.Job.ID)
		return nil
	},
}

// jobInput mirrors the server's create/update body.
type jobInput struct {
	Company  string `json:"company"`
	Position string `json:"position"`
	Location string `json:"location"`
	Status   string `json:"status,omitempty"`
	Type     string `json:"type,omitempty"`
}

// mergeUpdate overlays the flags set on cmd onto the current record.
func mergeUpdate(current job.Record, cmd *cobra.Command) jobInput {
	in := jobInput{
		Company:  current.Company,
		Position: current.Position,
		Location: current.Location,
		Status:   string(current.Status),
		Type:     string(current.Type),
	}
	fields := map[string]*string{
		"company":  &in.Company,
		"position": &in.Position,
		"location": &in.Location,
		"status":   &in.Status,
		"type":     &in.Type,
	}
	for name, dst := range fields {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	return in
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a job application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/jobs/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted job %s", args[0])
		return nil
	},
}

var jobsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all of your job applications as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if output != "" {
			printStep("Exporting jobs for %s", client.ownerID)
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		n, err := exportJobs(cmd.Context(), client, w)
		if err != nil {
			return err
		}

		if output != "" {
			printSuccess("Exported %d jobs to %s", n, output)
		}
		return nil
	},
}

const exportPageSize = 100

// exportJobs walks every page of the caller's jobs, oldest first, and writes
// one JSON record per line.
func exportJobs(ctx context.Context, c *apiClient, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	written := 0
	for page := 1; ; page++ {
		v := url.Values{}
		v.Set("sort", string(query.SortOldest))
		v.Set("page", strconv.Itoa(page))
		v.Set("limit", strconv.Itoa(exportPageSize))

		resp, err := c.get(ctx, "/jobs?"+v.Encode())
		if err != nil {
			return written, err
		}
		var res query.ListResult
		if err := decodeJSON(resp, &res); err != nil {
			return written, err
		}

		for _, j := range res.Jobs {
			if err := enc.Encode(j); err != nil {
				return written, fmt.Errorf("writing job %s: %w", j.ID, err)
			}
			written++
		}
		if len(res.Jobs) == 0 || page >= res.TotalPages {
			return written, nil
		}
	}
}

func fetchJob(ctx context.Context, c *apiClient, id string) (job.Record, error) {
	resp, err := c.get(ctx, "/jobs/"+url.PathEscape(id))
	if err != nil {
		return job.Record{}, err
	}
	var result struct {
		Job job.Record `json:"job"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return job.Record{}, err
	}
	return result.Job, nil
}

func init() {
	jobsListCmd.Flags().String("search", "", "match company or position (case-insensitive)")
	jobsListCmd.Flags().String("status", "", "pending, interview, declined or all")
	jobsListCmd.Flags().String("type", "", "full-time, part-time, internship, remote or all")
	jobsListCmd.Flags().String("sort", "", "newest, oldest, a-z or z-a")
	jobsListCmd.Flags().Int("page", 1, "page number")
	jobsListCmd.Flags().Int("limit", query.DefaultLimit, "jobs per page")

	for _, c := range []*cobra.Command{jobsAddCmd, jobsUpdateCmd} {
		c.Flags().String("company", "", "company name")
		c.Flags().String("position", "", "position title")
		c.Flags().String("location", "", "job location")
		c.Flags().String("status", "", "pending, interview or declined")
		c.Flags().String("type", "", "full-time, part-time, internship or remote")
	}

	jobsExportCmd.Flags().String("output", "", "output file path (default: stdout)")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsAddCmd)
	jobsCmd.AddCommand(jobsUpdateCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
	jobsCmd.AddCommand(jobsExportCmd)
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show application counts by status and by month",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/jobs/stats")
		if err != nil {
			return err
		}

		var st query.Stats
		if err := decodeJSON(resp, &st); err != nil {
			return err
		}

		printStats(os.Stdout, st)
		return nil
	},
}

func printStats(w io.Writer, st query.Stats) {
	fmt.Fprintln(w, colorize(colorBold, "By status"))
	fmt.Fprintf(w, "  %-10s %d\n", job.StatusPending, st.Status.Pending)
	fmt.Fprintf(w, "  %-10s %d\n", job.StatusInterview, st.Status.Interview)
	fmt.Fprintf(w, "  %-10s %d\n", job.StatusDeclined, st.Status.Declined)

	fmt.Fprintln(w, colorize(colorBold, "By month"))
	if len(st.Monthly) == 0 {
		fmt.Fprintln(w, "  no applications yet")
		return
	}
	peak := 0
	for _, m := range st.Monthly {
		peak = max(peak, m.Count)
	}
	for _, m := range st.Monthly {
		fmt.Fprintf(w, "  %-6s %s %d\n", m.Date, bar(m.Count, peak, 30), m.Count)
	}
}

// --- admin ---

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative queries across all owners",
}

var adminAppStatsCmd = &cobra.Command{
	Use:   "app-stats",
	Short: "Show the number of owners and jobs in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		client.admin = true

		resp, err := client.get(cmd.Context(), "/admin/app-stats")
		if err != nil {
			return err
		}

		var st storage.AppStats
		if err := decodeJSON(resp, &st); err != nil {
			return err
		}

		printStatus("Owners", "%d", st.TotalOwners)
		printStatus("Jobs", "%d", st.TotalJobs)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminAppStatsCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "($"+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
