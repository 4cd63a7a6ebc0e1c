package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/vishlabs/readaloud/tts"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
	"golang.org/x/term"
)

var (
	inputFile     string
	fromClipboard bool

	markdownExtensions = []string{".md", ".markdown", ".mdown", ".mkdn", ".mkd"}
)

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "read text from a file (markdown is stripped)")
	cmd.Flags().BoolVar(&fromClipboard, "clipboard", false, "read text from the clipboard")
	cmd.MarkFlagsMutuallyExclusive("file", "clipboard")
}

// readInput returns the text to speak from, in order: --file, --clipboard,
// arguments, or piped stdin.
func readInput(args []string, stdin io.Reader, stdinIsTerminal bool) (string, error) {
	var text string
	switch {
	case inputFile != "":
		path, err := homedir.Expand(inputFile)
		if err != nil {
			return "", fmt.Errorf("unable to expand path: %w", err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("unable to read file: %w", err)
		}
		text = string(b)
		if isMarkdownFile(path) {
			text = markdownToText(b)
		}

	case fromClipboard:
		s, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("unable to read clipboard: %w", err)
		}
		text = s

	case len(args) > 0:
		text = strings.Join(args, " ")

	case !stdinIsTerminal:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		text = string(b)

	default:
		return "", errors.New("nothing to read: pass TEXT, --file, --clipboard or pipe text on stdin")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", tts.ErrEmptyText
	}
	return text, nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec
}

func isMarkdownFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range markdownExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// markdownToText drops markdown syntax and code blocks, keeping one line per
// block so that paragraphs survive.
func markdownToText(src []byte) string {
	doc := goldmark.New().Parser().Parse(gtext.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(n.Segment.Value(src))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(n.Value)
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}
