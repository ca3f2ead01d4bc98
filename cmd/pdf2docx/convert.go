package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/pdf-to-docx/internal/ai"
	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
	"github.com/thywilljoshua/pdf-to-docx/internal/pdf"
)

func convertCmd(a *app) *cobra.Command {
	var out string
	var mode convert.Mode
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "convert <pdf>",
		Short: "Convert a PDF into a .docx document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath := args[0]
			conf, err := a.cfg.ConvertRequest()
			if err != nil {
				return err
			}
			conf.OutPath = out

			var onPage func(done, total int)
			if showProgress {
				var bar *progressbar.ProgressBar
				onPage = func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetWriter(cmd.ErrOrStderr()),
							progressbar.OptionSetDescription("converting"),
							progressbar.OptionShowCount(),
							progressbar.OptionSetItsString("pages"),
							progressbar.OptionOnCompletion(func() { fmt.Fprintln(cmd.ErrOrStderr()) }),
						)
					}
					_ = bar.Set(done)
				}
			}

			t, err := a.transformer(cmd.Context(), onPage)
			if err != nil {
				return err
			}
			res, err := t.Run(cmd.Context(), pdfPath, conf)
			if err != nil {
				color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", pdfPath, err)
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ %s → %s (%d pages)\n", pdfPath, res.OutPath, res.Pages)

			b, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output .docx path (default: input path with .docx extension)")
	f.Var(&mode, "mode", "what each page contributes: text-and-images|images-only|text-only")
	f.Float64("scale", convert.DefaultScale, "render scale (1.0 = 72 DPI)")
	f.Float64("width", convert.DefaultImageWidth, "display width of page images in inches")
	f.Int("workers", 1, "pages rendered in parallel")
	f.String("engine", string(pdf.EngineFitz), "pdf engine: fitz|text (text cannot render images)")
	f.String("ai", string(ai.ProviderOff), "alt-text captions: off|gemini")
	f.Int64("max-input-bytes", 0, "reject inputs larger than this many bytes")
	f.BoolVar(&showProgress, "progress", false, "show a per-page progress bar")

	for key, flag := range map[string]string{
		"convert.mode":            "mode",
		"convert.scale":           "scale",
		"convert.image_width":     "width",
		"convert.workers":         "workers",
		"convert.engine":          "engine",
		"convert.max_input_bytes": "max-input-bytes",
		"ai.provider":             "ai",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}
	return cmd
}

// transformer builds a Transformer from the loaded config. The mode is left
// to each request; the transformer refuses image modes its engine cannot
// serve.
func (a *app) transformer(ctx context.Context, onPage func(done, total int)) (*convert.Transformer, error) {
	engine, err := pdf.ParseEngine(a.cfg.Convert.Engine)
	if err != nil {
		return nil, err
	}
	return convert.New(convert.Options{
		Engine:    engine,
		Captioner: a.captioner(ctx),
		Workers:   a.cfg.Convert.Workers,
		Logger:    &a.log,
		OnPage:    onPage,
	}), nil
}

// captioner depends on the provider alone: any request may ask for images.
func (a *app) captioner(ctx context.Context) ai.Captioner {
	provider, err := ai.ParseProvider(a.cfg.AI.Provider)
	if err != nil {
		a.log.Warn().Err(err).Msg("captions disabled")
		return ai.Noop{}
	}
	c, err := ai.New(ctx, provider, a.cfg.AI.APIKey, a.cfg.AI.Model)
	if err != nil {
		a.log.Warn().Err(err).Str("provider", string(provider)).Msg("captions disabled")
		return ai.Noop{}
	}
	return c
}
