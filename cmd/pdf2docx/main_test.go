package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/pdf-to-docx/internal/ai"
	"github.com/thywilljoshua/pdf-to-docx/internal/config"
	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
	"github.com/thywilljoshua/pdf-to-docx/internal/docx"
	"github.com/thywilljoshua/pdf-to-docx/internal/pdf"
	"github.com/thywilljoshua/pdf-to-docx/internal/pdf/pdftest"
)

func execute(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	in := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(in, pdftest.Build(pdftest.WithText("Hello World"), pdftest.Letter), 0o644))

	stdout, err := execute(t, "convert", in, "--mode", "text_only", "--log-level", "off")
	require.NoError(t, err)

	var res convert.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, filepath.Join(dir, "report.docx"), res.OutPath)
	assert.Equal(t, "text-only", res.Mode)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, res.Paragraphs)
	assert.FileExists(t, res.OutPath)
}

func TestConvertCommandRejectsTextEngineImages(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	in := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(in, pdftest.Build(pdftest.Letter), 0o644))

	_, err := execute(t, "convert", in, "--engine", "text", "--log-level", "off")
	assert.ErrorIs(t, err, convert.ErrInvalidRequest)
	assert.ErrorContains(t, err, "cannot render page images")
	assert.NoFileExists(t, filepath.Join(dir, "report.docx"))

	_, err = execute(t, "convert", in, "--engine", "text", "--mode", "text-only", "--log-level", "off")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "report.docx"))
}

func TestCaptionerFollowsProviderNotMode(t *testing.T) {
	ctx := context.Background()
	a := &app{log: zerolog.Nop()}
	a.cfg.Convert.Mode = "text-only"
	a.cfg.AI = config.AIConfig{Provider: "gemini", APIKey: "test-key"}
	assert.IsType(t, &ai.Gemini{}, a.captioner(ctx))

	a.cfg.AI.APIKey = ""
	assert.Equal(t, ai.Noop{}, a.captioner(ctx))

	a.cfg.AI = config.AIConfig{Provider: "off"}
	assert.Equal(t, ai.Noop{}, a.captioner(ctx))
}

func TestConvertCommandRejectsBadMode(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "convert", "x.pdf", "--mode", "ocr")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestInfoCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	in := filepath.Join(dir, "two.pdf")
	require.NoError(t, os.WriteFile(in, pdftest.Build(pdftest.Letter, pdftest.Page{Width: 300, Height: 150}), 0o644))

	stdout, err := execute(t, "info", in, "--log-level", "off")
	require.NoError(t, err)
	assert.JSONEq(t, `{"pages":2,"sizes":[{"width":612,"height":792},{"width":300,"height":150}]}`, stdout)

	_, err = execute(t, "convert", in, "--mode", "images-only", "--scale", "0.5", "--log-level", "off")
	require.NoError(t, err)
	stdout, err = execute(t, "info", filepath.Join(dir, "two.docx"), "--log-level", "off")
	require.NoError(t, err)

	var info docxInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Zero(t, info.Paragraphs)
	assert.Equal(t, 2, info.Images)
	require.Len(t, info.Pictures, 2)
	assert.Equal(t, 306, info.Pictures[0].WidthPx)
	assert.Equal(t, "Page 2", info.Pictures[1].Alt)
}

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pdf2docx dev\n", stdout)
}

func callTool(t *testing.T, run runFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = "convert_pdf_to_docx"
	req.Params.Arguments = args
	res, err := convertTool(run, convert.Config{Mode: convert.TextAndImages, Scale: 1})(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestConvertToolConvertsFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out", "result.docx")
	require.NoError(t, os.WriteFile(in, pdftest.Build(pdftest.WithText("Hello World")), 0o644))

	res := callTool(t, convert.New(convert.Options{}).Run, map[string]any{
		argInput: in, argOutput: out, argMode: "text-only",
	})
	require.False(t, res.IsError, resultText(t, res))

	var got convert.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, out, got.OutPath)
	assert.Equal(t, 1, got.Paragraphs)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	blocks, err := docx.ReadBytes(data)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Hello World", blocks[0].Text)
}

func TestConvertToolErrors(t *testing.T) {
	failing := func(context.Context, string, convert.Config) (convert.Result, error) {
		return convert.Result{}, errors.New("open source document: not a pdf")
	}
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "missing input", args: map[string]any{}, want: "input is required"},
		{name: "bad mode", args: map[string]any{argInput: "a.pdf", argMode: "ocr"}, want: "unknown mode"},
		{name: "run failure", args: map[string]any{argInput: "a.pdf"}, want: "not a pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, failing, tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
		})
	}
}

func TestConvertToolChecksEnginePerCall(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	require.NoError(t, os.WriteFile(in, pdftest.Build(pdftest.WithText("Hello World")), 0o644))
	run := convert.New(convert.Options{Engine: pdf.EngineText}).Run

	res := callTool(t, run, map[string]any{argInput: in, argMode: "images-only"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "cannot render page images")
	assert.NoFileExists(t, filepath.Join(dir, "in.docx"))

	res = callTool(t, run, map[string]any{argInput: in, argMode: "text-only"})
	require.False(t, res.IsError, resultText(t, res))
	assert.FileExists(t, filepath.Join(dir, "in.docx"))
}

func TestConvertToolAppliesDefaults(t *testing.T) {
	var got convert.Config
	run := func(_ context.Context, _ string, cfg convert.Config) (convert.Result, error) {
		got = cfg
		return convert.Result{}, nil
	}
	res := callTool(t, run, map[string]any{argInput: "a.pdf"})
	assert.False(t, res.IsError)
	assert.Equal(t, convert.TextAndImages, got.Mode)
	assert.Equal(t, 1.0, got.Scale)
	assert.Empty(t, got.OutPath)
}
