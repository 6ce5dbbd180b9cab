package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-go-golems/agentchain/pkg/api"
	"github.com/go-go-golems/agentchain/pkg/approval"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ss, err := loadSettings()
			if err != nil {
				return err
			}
			// nobody can answer a terminal prompt behind an HTTP request
			var gate approval.Gate
			if ss.Workflow.Approval == approval.ModePrompt {
				log.Warn().Msg("prompt approval is not available in serve mode, auto-approving")
				gate = approval.AutoApprove
			}
			w, err := buildWorkflow(ss, gate)
			if err != nil {
				return err
			}

			e := api.NewServer(w).Echo()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := e.Shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("shutdown")
				}
			}()

			log.Info().Str("addr", addr).Msg("serving")
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
