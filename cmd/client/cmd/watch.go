package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/resona/api/internal/model"
	"github.com/resona/api/internal/poller"
)

var pollInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&pollInterval, "interval", 3*time.Second, "poll interval")
}

var watchCmd = &cobra.Command{
	Use:   "watch [jobId...]",
	Short: "Poll jobs until they reach a terminal state",
	Long: `Poll jobs until they reach a terminal state.
Without arguments, watches every active job.`,
	Run: func(cmd *cobra.Command, args []string) {
		ids := args
		if len(ids) == 0 {
			active, err := api().ActiveJobs(context.Background())
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to list active jobs: %v\n", err)
				os.Exit(1)
			}
			for _, job := range active {
				ids = append(ids, job.ID)
			}
		}
		if len(ids) == 0 {
			fmt.Println("nothing to watch")
			return
		}
		watchJobs(ids)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List job history",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := api().ListJobs(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
			os.Exit(1)
		}
		for _, job := range res.Jobs {
			line := fmt.Sprintf("%s  %-16s %-13s %-10s", job.ID, job.Kind, job.Provider, job.Status)
			if job.Title != "" {
				line += "  " + job.Title
			}
			fmt.Println(line)
		}
		fmt.Printf("%d jobs\n", res.Total)
	},
}

var storeCmd = &cobra.Command{
	Use:   "store <jobId>",
	Short: "Retry the durable-storage migration for a completed job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := api().StoreJob(context.Background(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "store failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("stored: %s\n", res.OutputURL)
	},
}

func watchJobs(ids []string) {
	c := api()
	p := poller.New(func(ctx context.Context, jobID string) (*model.StatusResponse, error) {
		return c.JobStatus(ctx, jobID)
	}, pollInterval)
	defer p.Stop()

	for _, id := range ids {
		p.Track(id)
	}

	remaining := len(ids)
	for update := range p.Updates() {
		st := update.Status
		switch st.Status {
		case model.JobStatusCompleted:
			url := ""
			if st.OutputURL != nil {
				url = *st.OutputURL
			}
			fmt.Printf("%s completed  %s\n", update.JobID, url)
		case model.JobStatusFailed:
			msg := ""
			if st.Error != nil {
				msg = *st.Error
			}
			fmt.Printf("%s failed  %s\n", update.JobID, msg)
		default:
			fmt.Printf("%s %s %d%%\n", update.JobID, st.Status, st.Progress)
		}

		if update.Terminal {
			remaining--
			if remaining == 0 {
				return
			}
		}
	}
}
