package main

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
)

// MCP tool parameter keys, shared by the schema and the handler.
const (
	argInput  = "input"
	argOutput = "output"
	argMode   = "mode"
)

// runFunc is the file conversion behind the MCP tool.
type runFunc func(ctx context.Context, pdfPath string, cfg convert.Config) (convert.Result, error)

func mcpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the convert_pdf_to_docx tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := a.cfg.ConvertRequest()
			if err != nil {
				return err
			}
			t, err := a.transformer(cmd.Context(), nil)
			if err != nil {
				return err
			}
			s := server.NewMCPServer("pdf2docx", version)
			registerTools(s, t.Run, conf)
			return server.ServeStdio(s)
		},
	}
}

func registerTools(s *server.MCPServer, run runFunc, defaults convert.Config) {
	s.AddTool(
		mcp.NewTool("convert_pdf_to_docx",
			mcp.WithDescription("Convert a PDF file into a Word .docx document. "+
				"Each page becomes its extracted text and/or a picture of the rendered page."),
			mcp.WithString(argInput,
				mcp.Required(),
				mcp.Description("Path of the PDF to convert"),
			),
			mcp.WithString(argOutput,
				mcp.Description("Path of the .docx to write (default: input path with .docx extension)"),
			),
			mcp.WithString(argMode,
				mcp.Description("text-and-images, images-only or text-only"),
				mcp.Enum("text-and-images", "images-only", "text-only"),
			),
		),
		convertTool(run, defaults),
	)
}

func convertTool(run runFunc, defaults convert.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, ok := req.Params.Arguments[argInput].(string)
		if !ok || input == "" {
			return mcp.NewToolResultError(argInput + " is required"), nil
		}
		cfg := defaults
		if out, ok := req.Params.Arguments[argOutput].(string); ok {
			cfg.OutPath = out
		}
		if m, ok := req.Params.Arguments[argMode].(string); ok && m != "" {
			mode, err := convert.ParseMode(m)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			cfg.Mode = mode
		}
		res, err := run(ctx, input, cfg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}
