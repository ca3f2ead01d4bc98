package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/pdf-to-docx/internal/docx"
	"github.com/thywilljoshua/pdf-to-docx/internal/pdf"
)

type docxInfo struct {
	Paragraphs int       `json:"paragraphs"`
	Images     int       `json:"images"`
	Pictures   []picture `json:"pictures,omitempty"`
}

type picture struct {
	WidthPx      int     `json:"width_px"`
	HeightPx     int     `json:"height_px"`
	WidthInches  float64 `json:"width_in"`
	HeightInches float64 `json:"height_in"`
	Alt          string  `json:"alt"`
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.pdf|file.docx>",
		Short: "Describe a PDF (pages, sizes) or a produced .docx (paragraphs, images)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var v any
			if pdf.Sniff(data) == nil {
				info, err := pdf.Probe(data)
				if err != nil {
					return err
				}
				v = info
			} else {
				blocks, err := docx.ReadBytes(data)
				if err != nil {
					return fmt.Errorf("%s is neither a PDF nor a .docx: %w", args[0], err)
				}
				v = describeDocx(blocks)
			}
			b, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func describeDocx(blocks []docx.Block) docxInfo {
	var info docxInfo
	for _, b := range blocks {
		switch b.Kind {
		case docx.KindParagraph:
			info.Paragraphs++
		case docx.KindImage:
			info.Images++
			info.Pictures = append(info.Pictures, picture{
				WidthPx:      b.Image.WidthPx,
				HeightPx:     b.Image.HeightPx,
				WidthInches:  b.Image.WidthInches(),
				HeightInches: b.Image.HeightInches(),
				Alt:          b.Image.Alt,
			})
		}
	}
	return info
}
