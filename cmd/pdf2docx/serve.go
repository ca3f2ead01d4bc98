package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
	"github.com/thywilljoshua/pdf-to-docx/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /convert over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conf, err := a.cfg.ConvertRequest()
			if err != nil {
				return err
			}
			t, err := a.transformer(ctx, nil)
			if err != nil {
				return err
			}
			srv := server.New(t, server.Config{
				MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
				Timeout:        a.cfg.Server.Timeout,
				Defaults: convert.Request{
					Mode:       conf.Mode,
					Scale:      conf.Scale,
					ImageWidth: conf.ImageWidth,
				},
			}, a.log)
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Duration("timeout", 0, "per-conversion deadline (0 uses config)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("server.timeout", cmd.Flags().Lookup("timeout"))
	return cmd
}
