package main

import (
	"github.com/spf13/cobra"

	httpiface "github.com/skylift/rotoreval/internal/interfaces/http"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the monitoring HTTP server",
		Long:  "Serves /health, /metrics (Prometheus), and /closeout/{case_id} endpoints.",
		RunE:  runMonitor,
	}
	cmd.Flags().String("addr", ":8090", "Listen address")
	return cmd
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	srv, err := httpiface.NewServer()
	if err != nil {
		return err
	}
	return srv.ListenAndServe(addr)
}
